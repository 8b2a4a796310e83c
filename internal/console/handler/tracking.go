package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra/auth"
	"github.com/miraiskin/platform/internal/repository/postgres"
)

// TrackingService Описываем, что нам нужно от сервиса
type TrackingService interface {
	List(ctx context.Context, f postgres.ShipmentFilter) ([]domain.Shipment, error)
	Get(ctx context.Context, id string) (*domain.Shipment, error)
	Stats(ctx context.Context) (*domain.TrackingStats, error)
}

type TrackingHandler struct {
	service TrackingService
	tasks   TaskEnqueuer
}

func NewTrackingHandler(s TrackingService, t TaskEnqueuer) *TrackingHandler {
	return &TrackingHandler{service: s, tasks: t}
}

// ListShipments возвращает отправления с фильтрами
// GET /api/tracking/shipments?carrier=...&status=...&delayed=true
func (h *TrackingHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := postgres.ShipmentFilter{
		Carrier: q.Get("carrier"),
		Status:  domain.ShipmentStatus(q.Get("status")),
	}
	if raw := q.Get("delayed"); raw != "" {
		delayed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "delayed must be true or false", http.StatusBadRequest)
			return
		}
		f.Delayed = &delayed
	}

	shipments, err := h.service.List(r.Context(), f)
	if err != nil {
		http.Error(w, "Failed to fetch shipments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shipments)
}

func (h *TrackingHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sh, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch shipment", http.StatusInternalServerError)
		return
	}
	if sh == nil {
		http.Error(w, "Shipment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sh)
}

func (h *TrackingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// EnqueueSync ставит задачу carrier-sync: обойти курьерские API по активным трекам
func (h *TrackingHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Enqueue(r.Context(), domain.TaskCarrierSync, nil, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(task)
}
