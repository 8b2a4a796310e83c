package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/console/service"
	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

type noopTrail struct{}

func (noopTrail) Log(audit.Event) {}

// fakeSocialRepo покрывает только методы, нужные конкретному тесту
type fakeSocialRepo struct {
	service.SocialRepository

	post       *domain.SocialPost
	strategies []domain.SocialStrategy
}

func (f *fakeSocialRepo) GetPost(_ context.Context, _ string) (*domain.SocialPost, error) {
	return f.post, nil
}

func (f *fakeSocialRepo) ListStrategies(_ context.Context) ([]domain.SocialStrategy, error) {
	return f.strategies, nil
}

func newSocialHandler(repo *fakeSocialRepo, enq *fakeEnqueuer) *SocialHandler {
	svc := service.NewSocialService(repo, nil, noopTrail{}, zap.NewNop())
	return NewSocialHandler(svc, enq)
}

func TestGetPostMissingReturnsNotFound(t *testing.T) {
	// Репозиторий отдает nil без ошибки, когда строки нет
	h := newSocialHandler(&fakeSocialRepo{post: nil}, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/social-media/posts/nope", nil), "id", "nope")
	h.GetPost(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPublishMissingPostReturnsNotFound(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newSocialHandler(&fakeSocialRepo{post: nil}, enq)

	rec := httptest.NewRecorder()
	req := withParam(newAuthedRequest(http.MethodPost, "/api/social-media/posts/nope/publish", ""), "id", "nope")
	h.Publish(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if enq.gotKind != "" {
		t.Errorf("task enqueued for missing post: %q", enq.gotKind)
	}
}

func TestPublishAlreadyPublishedConflict(t *testing.T) {
	repo := &fakeSocialRepo{post: &domain.SocialPost{ID: "p1", Status: domain.PostPublished}}
	h := newSocialHandler(repo, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	req := withParam(newAuthedRequest(http.MethodPost, "/api/social-media/posts/p1/publish", ""), "id", "p1")
	h.Publish(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListStrategiesSetsJSONHeader(t *testing.T) {
	repo := &fakeSocialRepo{strategies: []domain.SocialStrategy{{ID: "st1"}}}
	h := newSocialHandler(repo, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	h.ListStrategies(rec, httptest.NewRequest(http.MethodGet, "/api/social-media/strategies", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}
