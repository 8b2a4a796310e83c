package runner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/miraiskin/platform/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskStore описывает требования раннера к хранилищу задач
type TaskStore interface {
	ClaimPendingTask(ctx context.Context, excluded []string) (*domain.Task, error)
	SetTaskProgress(ctx context.Context, id string, progress int) error
	FinishTask(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error
}

// ProgressFunc двигает индикатор задачи (0..100) для поллящего фронта
type ProgressFunc func(pct int)

// Job — исполнитель одного вида фоновых задач
type Job interface {
	Kind() domain.TaskKind
	Run(ctx context.Context, task *domain.Task, progress ProgressFunc) (json.RawMessage, error)
}

// Runner забирает PENDING-задачи и выполняет их.
// Будится Redis-сигналом; fallback-опрос базы страхует от потери сигналов.
type Runner struct {
	store   TaskStore
	rdb     *redis.Client
	pause   *PauseManager
	trail   audit.Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger

	jobs      map[domain.TaskKind]Job
	pollEvery time.Duration
	wake      chan struct{}
}

func New(store TaskStore, rdb *redis.Client, pause *PauseManager, trail audit.Recorder, m *metrics.Metrics, pollEvery time.Duration, logger *zap.Logger) *Runner {
	if pollEvery <= 0 {
		pollEvery = 15 * time.Second
	}
	return &Runner{
		store:     store,
		rdb:       rdb,
		pause:     pause,
		trail:     trail,
		metrics:   m,
		logger:    logger.Named("runner"),
		jobs:      make(map[domain.TaskKind]Job),
		pollEvery: pollEvery,
		wake:      make(chan struct{}, 1),
	}
}

func (r *Runner) Register(job Job) {
	r.jobs[job.Kind()] = job
}

// Run — основной цикл. Блокируется до отмены контекста.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.pause.Init(ctx); err != nil {
		// Redis может быть недоступен на старте — listener досинхронизирует
		r.logger.Warn("pause state init failed, starting with config seed only", zap.Error(err))
	}
	go r.pause.StartListener(ctx)

	// Сигнал о новой задаче. Буфер 1: пока мы разгребаем очередь,
	// повторные сигналы схлопываются в один.
	go ListenRawResilient(ctx, r.rdb, r.logger, infra.RedisChanTaskWake,
		nil,
		func(payload string) {
			if !domain.KnownKind(domain.TaskKind(payload)) {
				r.logger.Warn("unknown kind in wake signal", zap.String("payload", payload))
				return
			}
			select {
			case r.wake <- struct{}{}:
			default:
			}
		},
	)

	r.logger.Info("runner started", zap.Duration("poll_interval", r.pollEvery))

	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		r.drain(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping")
			return ctx.Err()
		case <-r.wake:
		case <-ticker.C: // Fallback: сигнал мог потеряться при обрыве Redis
		}
	}
}

// drain выполняет задачи, пока очередь не опустеет
func (r *Runner) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := r.store.ClaimPendingTask(ctx, r.pause.Excluded())
		if err != nil {
			r.logger.Error("claim failed", zap.Error(err))
			return
		}
		if task == nil {
			return // Очередь пуста
		}
		r.execute(ctx, task)
	}
}

func (r *Runner) execute(ctx context.Context, task *domain.Task) {
	log := r.logger.With(
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)))

	job, ok := r.jobs[task.Kind]
	if !ok {
		log.Error("no handler registered for kind")
		r.finish(ctx, task, nil, errors.New("no handler for kind "+string(task.Kind)))
		return
	}

	log.Info("task started")
	start := time.Now()

	progress := func(pct int) {
		if err := r.store.SetTaskProgress(ctx, task.ID, pct); err != nil {
			log.Warn("progress update failed", zap.Error(err))
		}
	}

	result, err := job.Run(ctx, task, progress)
	r.finish(ctx, task, result, err)

	if r.metrics != nil {
		outcome := "completed"
		if err != nil {
			outcome = "failed"
		}
		r.metrics.TasksTotal.WithLabelValues(string(task.Kind), outcome).Inc()
		r.metrics.TaskDuration.WithLabelValues(string(task.Kind)).Observe(time.Since(start).Seconds())
	}

	log.Info("task finished",
		zap.Duration("took", time.Since(start)),
		zap.Bool("failed", err != nil))
}

// finish переводит задачу в терминальный статус ровно один раз
func (r *Runner) finish(ctx context.Context, task *domain.Task, result json.RawMessage, jobErr error) {
	status := domain.TaskCompleted
	errMsg := ""
	action := "task.completed"
	if jobErr != nil {
		status = domain.TaskFailed
		errMsg = jobErr.Error()
		action = "task.failed"
	}

	if err := r.store.FinishTask(ctx, task.ID, status, result, errMsg); err != nil {
		if errors.Is(err, domain.ErrTaskTerminal) {
			r.logger.Warn("task already finished by another runner", zap.String("task_id", task.ID))
			return
		}
		r.logger.Error("failed to finish task", zap.String("task_id", task.ID), zap.Error(err))
		return
	}

	r.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    "runner",
		Action:   action,
		Entity:   "task",
		EntityID: task.ID,
		Detail:   map[string]interface{}{"kind": string(task.Kind), "error": errMsg},
	})
}
