package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
)

// TaskService Описываем, что нам нужно от сервиса
type TaskService interface {
	TaskEnqueuer
	Get(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, kind domain.TaskKind, status domain.TaskStatus) ([]*domain.Task, error)
	PauseKind(ctx context.Context, kind domain.TaskKind, actor string) error
	ResumeKind(ctx context.Context, kind domain.TaskKind, actor string) error
}

type TaskHandler struct {
	service TaskService
}

func NewTaskHandler(s TaskService) *TaskHandler {
	return &TaskHandler{service: s}
}

// Get — эндпоинт поллинга: фронт дергает его каждые 1-3 секунды,
// пока задача не дойдет до COMPLETED или FAILED
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := domain.TaskKind(r.URL.Query().Get("kind"))
	status := domain.TaskStatus(r.URL.Query().Get("status"))

	tasks, err := h.service.List(r.Context(), kind, status)
	if err != nil {
		http.Error(w, "Failed to fetch tasks", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

type EnqueueRequest struct {
	Kind   domain.TaskKind `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Enqueue — общий вход постановки задач (доменные вкладки обычно используют
// свои POST /sync-эндпоинты, этот нужен для истории задач и отладки)
func (h *TaskHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.Enqueue(r.Context(), req.Kind, req.Params, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(task)
}

// Pause выключает выполнение задач данного вида (мгновенно, через Redis)
func (h *TaskHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPause(w, r, true)
}

func (h *TaskHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPause(w, r, false)
}

func (h *TaskHandler) setPause(w http.ResponseWriter, r *http.Request, pause bool) {
	kind := domain.TaskKind(chi.URLParam(r, "kind"))
	if !domain.KnownKind(kind) {
		http.Error(w, "unknown task kind", http.StatusBadRequest)
		return
	}

	var err error
	if pause {
		err = h.service.PauseKind(r.Context(), kind, auth.UserID(r.Context()))
	} else {
		err = h.service.ResumeKind(r.Context(), kind, auth.UserID(r.Context()))
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
