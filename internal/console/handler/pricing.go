package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
)

// PricingService Описываем, что нам нужно от сервиса
type PricingService interface {
	ListItems(ctx context.Context, search string, bucket domain.PriceBucket) ([]domain.PriceItem, error)
	Analysis(ctx context.Context) (*domain.PriceAnalysis, error)
	Targets(ctx context.Context) ([]domain.TargetPrice, error)
	SaveTarget(ctx context.Context, t domain.TargetPrice, actor string) error
	DeleteTarget(ctx context.Context, sku, actor string) error
	Updates(ctx context.Context, status domain.PriceUpdateStatus) ([]*domain.PriceUpdate, error)
	Decide(ctx context.Context, updateID string, approved bool, reviewerID, comment string) error
	Rules(ctx context.Context) ([]domain.GuardRule, error)
	RuleByID(ctx context.Context, id string) (*domain.GuardRule, error)
	CreateRule(ctx context.Context, r *domain.GuardRule, actor string) error
	UpdateRule(ctx context.Context, r *domain.GuardRule, actor string) error
	DeleteRule(ctx context.Context, id, actor string) error
}

// TaskEnqueuer ставит фоновую задачу; фронт дальше поллит /api/tasks/{id}
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, kind domain.TaskKind, params json.RawMessage, requestedBy string) (*domain.Task, error)
}

type PricingHandler struct {
	service PricingService
	tasks   TaskEnqueuer
}

func NewPricingHandler(s PricingService, t TaskEnqueuer) *PricingHandler {
	return &PricingHandler{service: s, tasks: t}
}

func (h *PricingHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	bucket := domain.PriceBucket(r.URL.Query().Get("bucket"))

	items, err := h.service.ListItems(r.Context(), search, bucket)
	if err != nil {
		http.Error(w, "Failed to fetch price items", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *PricingHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analysis(r.Context())
	if err != nil {
		http.Error(w, "Failed to build analysis", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

func (h *PricingHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.Targets(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch target prices", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(targets)
}

func (h *PricingHandler) SaveTarget(w http.ResponseWriter, r *http.Request) {
	var t domain.TargetPrice
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveTarget(r.Context(), t, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PricingHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		http.Error(w, "SKU is required", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteTarget(r.Context(), sku, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PricingHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	status := domain.PriceUpdateStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.PriceUpdatePending // Дефолт для удобства админки
	}

	updates, err := h.service.Updates(r.Context(), status)
	if err != nil {
		http.Error(w, "Failed to fetch price updates", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updates)
}

type DecideRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

func (h *PricingHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reviewerID := auth.UserID(r.Context())
	if reviewerID == "" {
		http.Error(w, "reviewer is required", http.StatusBadRequest)
		return
	}

	err := h.service.Decide(r.Context(), id, req.Approved, reviewerID, req.Comment)
	if err != nil {
		// Конкурирующий оператор успел раньше — строка уже не PENDING
		if errors.Is(err, domain.ErrUpdateAlreadyDecided) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnqueueSync ставит задачу price-sync: подтянуть предложения и застейджить апдейты
func (h *PricingHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, domain.TaskPriceSync)
}

// EnqueueScan ставит задачу competitor-scan: обновить цены конкурентов и бакеты
func (h *PricingHandler) EnqueueScan(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, domain.TaskCompetitorScan)
}

func (h *PricingHandler) enqueue(w http.ResponseWriter, r *http.Request, kind domain.TaskKind) {
	task, err := h.tasks.Enqueue(r.Context(), kind, nil, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(task)
}

func (h *PricingHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.Rules(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch guard rules", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rules)
}

// GetRule возвращает детали конкретного правила по его ID.
// GET /api/pricing/rules/{id}
func (h *PricingHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Rule ID is required", http.StatusBadRequest)
		return
	}

	rule, err := h.service.RuleByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to retrieve rule: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rule == nil {
		http.Error(w, "Rule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rule); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}

// CreateRule создает новое ограждающее правило (включая Wildcard '*')
func (h *PricingHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.GuardRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.CreateRule(r.Context(), &rule, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *PricingHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rule domain.GuardRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rule.ID = id

	if err := h.service.UpdateRule(r.Context(), &rule, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRule удаляет правило и инициирует инвалидацию кэша раннеров
func (h *PricingHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteRule(r.Context(), id, auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
