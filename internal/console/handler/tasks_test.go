package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/domain"
)

type fakeTaskService struct {
	tasks map[string]*domain.Task

	pausedKind  domain.TaskKind
	resumedKind domain.TaskKind
}

func (f *fakeTaskService) Enqueue(_ context.Context, kind domain.TaskKind, params json.RawMessage, _ string) (*domain.Task, error) {
	if !domain.KnownKind(kind) {
		return nil, errors.New("unknown task kind")
	}
	return &domain.Task{ID: "t-new", Kind: kind, Status: domain.TaskPending, Params: params}, nil
}

func (f *fakeTaskService) Get(_ context.Context, id string) (*domain.Task, error) {
	return f.tasks[id], nil
}

func (f *fakeTaskService) List(_ context.Context, _ domain.TaskKind, _ domain.TaskStatus) ([]*domain.Task, error) {
	out := make([]*domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTaskService) PauseKind(_ context.Context, kind domain.TaskKind, _ string) error {
	f.pausedKind = kind
	return nil
}

func (f *fakeTaskService) ResumeKind(_ context.Context, kind domain.TaskKind, _ string) error {
	f.resumedKind = kind
	return nil
}

func withParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetTaskPolling(t *testing.T) {
	svc := &fakeTaskService{tasks: map[string]*domain.Task{
		"t-1": {ID: "t-1", Kind: domain.TaskCarrierSync, Status: domain.TaskRunning, Progress: 40},
	}}
	h := NewTaskHandler(svc)

	rec := httptest.NewRecorder()
	h.Get(rec, withParam(httptest.NewRequest(http.MethodGet, "/api/tasks/t-1", nil), "id", "t-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var task domain.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != domain.TaskRunning || task.Progress != 40 {
		t.Errorf("unexpected body: %+v", task)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	h := NewTaskHandler(&fakeTaskService{tasks: map[string]*domain.Task{}})

	rec := httptest.NewRecorder()
	h.Get(rec, withParam(httptest.NewRequest(http.MethodGet, "/api/tasks/nope", nil), "id", "nope"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPauseRejectsUnknownKind(t *testing.T) {
	svc := &fakeTaskService{}
	h := NewTaskHandler(svc)

	rec := httptest.NewRecorder()
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/tasks/kinds/backup/pause", nil), "kind", "backup")
	h.Pause(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if svc.pausedKind != "" {
		t.Errorf("service must not be called for unknown kind, got %q", svc.pausedKind)
	}
}

func TestPauseResumeKnownKind(t *testing.T) {
	svc := &fakeTaskService{}
	h := NewTaskHandler(svc)

	rec := httptest.NewRecorder()
	h.Pause(rec, withParam(httptest.NewRequest(http.MethodPost, "/api/tasks/kinds/price-sync/pause", nil), "kind", "price-sync"))
	if rec.Code != http.StatusNoContent || svc.pausedKind != domain.TaskPriceSync {
		t.Errorf("pause: status=%d paused=%q", rec.Code, svc.pausedKind)
	}

	rec = httptest.NewRecorder()
	h.Resume(rec, withParam(httptest.NewRequest(http.MethodPost, "/api/tasks/kinds/price-sync/resume", nil), "kind", "price-sync"))
	if rec.Code != http.StatusNoContent || svc.resumedKind != domain.TaskPriceSync {
		t.Errorf("resume: status=%d resumed=%q", rec.Code, svc.resumedKind)
	}
}
