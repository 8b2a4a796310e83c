package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/console/service"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
)

type KorealyHandler struct {
	service *service.KorealyService
	tasks   TaskEnqueuer
}

func NewKorealyHandler(s *service.KorealyService, t TaskEnqueuer) *KorealyHandler {
	return &KorealyHandler{service: s, tasks: t}
}

// ListRecords возвращает строки сверки для таблицы
// GET /api/korealy/records?status=MISMATCH&unresolved=true
func (h *KorealyHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	unresolvedOnly := false
	if raw := r.URL.Query().Get("unresolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "unresolved must be true or false", http.StatusBadRequest)
			return
		}
		unresolvedOnly = v
	}

	records, err := h.service.Records(r.Context(), status, unresolvedOnly)
	if err != nil {
		http.Error(w, "Failed to fetch reconciliation records", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *KorealyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch summary", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

type ResolveRequest struct {
	Note string `json:"note"`
}

// Resolve помечает расхождение разобранным (оператор оставляет пометку)
func (h *KorealyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.Resolve(r.Context(), id, auth.UserID(r.Context()), req.Note)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnqueueReconcile ставит задачу korealy-reconcile: забрать выгрузку и сматчить с заказами
func (h *KorealyHandler) EnqueueReconcile(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Enqueue(r.Context(), domain.TaskKorealyReconcile, nil, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(task)
}
