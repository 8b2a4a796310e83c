package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/console/service"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
)

type SocialHandler struct {
	service *service.SocialService
	tasks   TaskEnqueuer
}

func NewSocialHandler(s *service.SocialService, t TaskEnqueuer) *SocialHandler {
	return &SocialHandler{service: s, tasks: t}
}

func (h *SocialHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	posts, err := h.service.Posts(r.Context(), status)
	if err != nil {
		http.Error(w, "Failed to fetch posts", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(posts)
}

func (h *SocialHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.service.Post(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch post", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

func (h *SocialHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var p domain.SocialPost
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if p.Caption == "" {
		http.Error(w, "caption is required", http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateDraft(r.Context(), &p, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// Publish ставит задачу instagram-publish для черновика.
// Фронт получает задачу и поллит её статус до completed/failed.
func (h *SocialHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.service.Post(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch post", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if post.Status == domain.PostPublished {
		http.Error(w, "post already published", http.StatusConflict)
		return
	}

	params := json.RawMessage(fmt.Sprintf(`{"post_id":%q}`, id))
	task, err := h.tasks.Enqueue(r.Context(), domain.TaskInstagramPublish, params, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(task)
}

// Generate синхронно просит генератор написать варианты текста.
// POST /api/social-media/generate
func (h *SocialHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.CaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	variants, err := h.service.Generate(r.Context(), req, auth.UserID(r.Context()))
	if err != nil {
		// Генератор — внешний сервис, его недоступность не наша 500
		http.Error(w, "Generator unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(variants)
}

func (h *SocialHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.service.Strategies(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch strategies", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(strategies)
}

func (h *SocialHandler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var st domain.SocialStrategy
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	st.ID = id

	if err := h.service.SaveStrategy(r.Context(), &st, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDecisions отдает журнал решений AI-агента
// GET /api/social-media/decisions?post_id=...&action=...
func (h *SocialHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")
	action := r.URL.Query().Get("action")

	decisions, err := h.service.Decisions(r.Context(), postID, action)
	if err != nil {
		http.Error(w, "Failed to fetch decisions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decisions)
}
