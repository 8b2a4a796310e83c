package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/repository/postgres"
)

type fakeTrackingService struct {
	shipments []domain.Shipment
	shipment  *domain.Shipment
	gotFilter postgres.ShipmentFilter
}

func (f *fakeTrackingService) List(_ context.Context, flt postgres.ShipmentFilter) ([]domain.Shipment, error) {
	f.gotFilter = flt
	return f.shipments, nil
}

func (f *fakeTrackingService) Get(_ context.Context, _ string) (*domain.Shipment, error) {
	return f.shipment, nil
}

func (f *fakeTrackingService) Stats(_ context.Context) (*domain.TrackingStats, error) {
	return &domain.TrackingStats{}, nil
}

func TestListShipmentsAppliesQueryFilters(t *testing.T) {
	svc := &fakeTrackingService{shipments: []domain.Shipment{{ID: "s1"}}}
	h := NewTrackingHandler(svc, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/tracking/shipments?carrier=yamato&status=in_transit&delayed=true", nil)
	h.ListShipments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if svc.gotFilter.Carrier != "yamato" {
		t.Errorf("carrier filter = %q, want yamato", svc.gotFilter.Carrier)
	}
	if svc.gotFilter.Status != domain.ShipmentInTransit {
		t.Errorf("status filter = %q, want %q", svc.gotFilter.Status, domain.ShipmentInTransit)
	}
	if svc.gotFilter.Delayed == nil || !*svc.gotFilter.Delayed {
		t.Errorf("delayed filter = %v, want true", svc.gotFilter.Delayed)
	}
}

func TestListShipmentsRejectsBadDelayedParam(t *testing.T) {
	h := NewTrackingHandler(&fakeTrackingService{}, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	h.ListShipments(rec, httptest.NewRequest(http.MethodGet, "/api/tracking/shipments?delayed=maybe", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetShipmentMissingReturnsNotFound(t *testing.T) {
	// Репозиторий отдает nil без ошибки, когда строки нет
	h := NewTrackingHandler(&fakeTrackingService{shipment: nil}, &fakeEnqueuer{})

	rec := httptest.NewRecorder()
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/tracking/shipments/nope", nil), "id", "nope")
	h.GetShipment(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
