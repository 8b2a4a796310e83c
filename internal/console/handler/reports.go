package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/miraiskin/platform/internal/domain"
)

// ReportService Описываем, что нам нужно от сервиса
type ReportService interface {
	Overview(ctx context.Context) (*domain.OverviewReport, error)
	Sales(ctx context.Context, from, to time.Time) ([]domain.SalesPoint, error)
}

type ReportHandler struct {
	service ReportService
}

func NewReportHandler(s ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func (h *ReportHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Overview(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch overview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// GetSales отдает дневные точки выручки для графика
// GET /api/reports/sales?from=2026-08-01&to=2026-08-31
func (h *ReportHandler) GetSales(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	var err error

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	points, err := h.service.Sales(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}
