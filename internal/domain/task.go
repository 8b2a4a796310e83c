package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Виды фоновых задач. Ровно эти строки летят в Redis-канал пробуждения.
type TaskKind string

const (
	TaskPriceSync        TaskKind = "price-sync"
	TaskCompetitorScan   TaskKind = "competitor-scan"
	TaskCarrierSync      TaskKind = "carrier-sync"
	TaskInstagramPublish TaskKind = "instagram-publish"
	TaskKorealyReconcile TaskKind = "korealy-reconcile"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

var (
	ErrTaskTerminal   = errors.New("task already in terminal state")
	ErrTaskNotRunning = errors.New("task is not running")
)

// Task — фоновая задача. Дашборд опрашивает /api/tasks/{id} раз в 1-3 секунды,
// пока статус не станет терминальным.
type Task struct {
	ID     string     `json:"id"` // UUID
	Kind   TaskKind   `json:"kind"`
	Status TaskStatus `json:"status"`

	// Параметры задачи (например, post_id для публикации)
	Params json.RawMessage `json:"params,omitempty"`

	Progress int             `json:"progress"` // 0..100
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`

	RequestedBy string     `json:"requested_by"` // Оператор, нажавший кнопку
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Terminal сообщает, можно ли прекращать опрос статуса
func (t *Task) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// CanTransitionTo проверяет конечный автомат задачи.
// Терминальные состояния финальны: перезапуск — это всегда новая задача.
func (t *Task) CanTransitionTo(next TaskStatus) error {
	if t.Terminal() {
		return ErrTaskTerminal
	}
	switch next {
	case TaskRunning:
		if t.Status != TaskPending {
			return ErrTaskNotRunning
		}
	case TaskCompleted, TaskFailed:
		if t.Status != TaskRunning {
			return ErrTaskNotRunning
		}
	case TaskPending:
		return ErrTaskNotRunning
	}
	return nil
}

// KnownKind отсекает мусорные значения из query-параметров и Redis-сигналов
func KnownKind(k TaskKind) bool {
	switch k {
	case TaskPriceSync, TaskCompetitorScan, TaskCarrierSync, TaskInstagramPublish, TaskKorealyReconcile:
		return true
	}
	return false
}
