package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
)

// fakePricingService настраивается возвращаемыми значениями per-test
type fakePricingService struct {
	PricingService

	updates   []*domain.PriceUpdate
	decideErr error

	gotDecideID  string
	gotApproved  bool
	gotReviewer  string
	gotComment   string
	decideCalled bool
}

func (f *fakePricingService) Updates(_ context.Context, status domain.PriceUpdateStatus) ([]*domain.PriceUpdate, error) {
	out := make([]*domain.PriceUpdate, 0)
	for _, u := range f.updates {
		if u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakePricingService) Rules(_ context.Context) ([]domain.GuardRule, error) {
	return []domain.GuardRule{{ID: "r1"}}, nil
}

func (f *fakePricingService) Decide(_ context.Context, id string, approved bool, reviewer, comment string) error {
	f.decideCalled = true
	f.gotDecideID = id
	f.gotApproved = approved
	f.gotReviewer = reviewer
	f.gotComment = comment
	return f.decideErr
}

type fakeEnqueuer struct {
	gotKind domain.TaskKind
	task    *domain.Task
	err     error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, kind domain.TaskKind, _ json.RawMessage, _ string) (*domain.Task, error) {
	f.gotKind = kind
	if f.task == nil {
		f.task = &domain.Task{ID: "t-1", Kind: kind, Status: domain.TaskPending}
	}
	return f.task, f.err
}

// newAuthedRequest подкладывает авторизованного оператора в контекст
func newAuthedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithUser(req.Context(), "op-7", nil))
}

func TestListUpdatesDefaultsToPending(t *testing.T) {
	svc := &fakePricingService{updates: []*domain.PriceUpdate{
		{ID: "u1", Status: domain.PriceUpdatePending},
		{ID: "u2", Status: domain.PriceUpdateApplied},
	}}
	h := NewPricingHandler(svc, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	h.ListUpdates(rec, newAuthedRequest(http.MethodGet, "/api/pricing/updates", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []domain.PriceUpdate
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u1" {
		t.Errorf("expected only pending update u1, got %+v", got)
	}
}

func TestDecideConflictOnSecondDecision(t *testing.T) {
	svc := &fakePricingService{decideErr: domain.ErrUpdateAlreadyDecided}
	h := NewPricingHandler(svc, &fakeEnqueuer{})

	req := newAuthedRequest(http.MethodPost, "/api/pricing/updates/u1/decide", `{"approved":true}`)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "u1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Decide(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestDecidePassesReviewerFromContext(t *testing.T) {
	svc := &fakePricingService{}
	h := NewPricingHandler(svc, &fakeEnqueuer{})

	req := newAuthedRequest(http.MethodPost, "/api/pricing/updates/u1/decide", `{"approved":false,"comment":"too low"}`)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "u1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Decide(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !svc.decideCalled || svc.gotReviewer != "op-7" || svc.gotApproved || svc.gotComment != "too low" {
		t.Errorf("service got id=%q approved=%v reviewer=%q comment=%q",
			svc.gotDecideID, svc.gotApproved, svc.gotReviewer, svc.gotComment)
	}
}

func TestEnqueueSyncReturnsAcceptedTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := NewPricingHandler(&fakePricingService{}, enq)

	rec := httptest.NewRecorder()
	h.EnqueueSync(rec, newAuthedRequest(http.MethodPost, "/api/pricing/sync", ""))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if enq.gotKind != domain.TaskPriceSync {
		t.Errorf("enqueued kind = %q, want %q", enq.gotKind, domain.TaskPriceSync)
	}
	var task domain.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID == "" || task.Status != domain.TaskPending {
		t.Errorf("unexpected task payload: %+v", task)
	}
}

func TestListRulesSetsJSONHeader(t *testing.T) {
	h := NewPricingHandler(&fakePricingService{}, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	h.ListRules(rec, newAuthedRequest(http.MethodGet, "/api/pricing/rules", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}
