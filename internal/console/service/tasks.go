package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskRepository описывает требования сервиса к хранилищу задач
type TaskRepository interface {
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, kind domain.TaskKind, status domain.TaskStatus) ([]*domain.Task, error)
}

type TaskService struct {
	repo   TaskRepository
	rdb    *redis.Client
	trail  audit.Recorder
	logger *zap.Logger
}

func NewTaskService(repo TaskRepository, rdb *redis.Client, trail audit.Recorder, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		rdb:    rdb,
		trail:  trail,
		logger: logger.Named("task-service"),
	}
}

// Enqueue создает PENDING-задачу и будит раннер через Redis.
// Сбой сигнала не фатален: раннер доберет задачу fallback-опросом базы.
func (s *TaskService) Enqueue(ctx context.Context, kind domain.TaskKind, params json.RawMessage, requestedBy string) (*domain.Task, error) {
	if !domain.KnownKind(kind) {
		return nil, fmt.Errorf("unknown task kind: %s", kind)
	}

	task := &domain.Task{
		ID:          uuid.New().String(),
		Kind:        kind,
		Status:      domain.TaskPending,
		Params:      params,
		RequestedBy: requestedBy,
	}

	// 1. Persistence Layer
	if err := s.repo.CreateTask(ctx, task); err != nil {
		s.logger.Error("failed to create task in DB",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, fmt.Errorf("enqueue database error: %w", err)
	}

	// 2. Real-time Signaling
	if err := s.rdb.Publish(ctx, infra.RedisChanTaskWake, string(kind)).Err(); err != nil {
		s.logger.Warn("task wake signal delivery failed",
			zap.String("task_id", task.ID),
			zap.Error(err))
	} else {
		s.logger.Info("task enqueued",
			zap.String("task_id", task.ID),
			zap.String("kind", string(kind)))
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    requestedBy,
		Action:   "task.enqueue",
		Entity:   "task",
		EntityID: task.ID,
		Detail:   map[string]interface{}{"kind": string(kind)},
	})

	return task, nil
}

// Get — опрашиваемый фронтендом статус задачи
func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *TaskService) List(ctx context.Context, kind domain.TaskKind, status domain.TaskStatus) ([]*domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, kind, status)
	if err != nil {
		s.logger.Error("failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch tasks: %w", err)
	}
	// Фронтенд должен получить [], а не null
	if tasks == nil {
		return []*domain.Task{}, nil
	}
	return tasks, nil
}

// setKindPause — унифицированный механизм паузы вида задач.
// Обновляет Redis-set (источник правды) и транслирует сигнал раннерам.
func (s *TaskService) setKindPause(ctx context.Context, kind domain.TaskKind, paused bool, actor string) error {
	if !domain.KnownKind(kind) {
		return fmt.Errorf("unknown task kind: %s", kind)
	}

	var err error
	signal := "off"
	action := "task.resume"
	if paused {
		signal = "on"
		action = "task.pause"
		err = s.rdb.SAdd(ctx, infra.RedisKeyPausedKinds, string(kind)).Err()
	} else {
		err = s.rdb.SRem(ctx, infra.RedisKeyPausedKinds, string(kind)).Err()
	}
	if err != nil {
		s.logger.Error("failed to update paused set", zap.String("kind", string(kind)), zap.Error(err))
		return fmt.Errorf("pause state update failed: %w", err)
	}

	payload := fmt.Sprintf("%s:%s", kind, signal)
	if err := s.rdb.Publish(ctx, infra.RedisChanPause, payload).Err(); err != nil {
		s.logger.Warn("pause signal delivery failed", zap.Error(err))
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   action,
		Entity:   "task_kind",
		EntityID: string(kind),
	})

	s.logger.Info("task kind pause toggled",
		zap.String("kind", string(kind)),
		zap.Bool("paused", paused))
	return nil
}

func (s *TaskService) PauseKind(ctx context.Context, kind domain.TaskKind, actor string) error {
	return s.setKindPause(ctx, kind, true, actor)
}

func (s *TaskService) ResumeKind(ctx context.Context, kind domain.TaskKind, actor string) error {
	return s.setKindPause(ctx, kind, false, actor)
}
