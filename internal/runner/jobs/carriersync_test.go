package jobs

import (
	"testing"
	"time"

	"github.com/miraiskin/platform/internal/domain"
)

func TestMapCarrierStatus(t *testing.T) {
	cases := []struct {
		in   string
		want domain.ShipmentStatus
	}{
		{"delivered", domain.ShipmentDelivered},
		{"customs_hold", domain.ShipmentCustoms},
		{"lost", domain.ShipmentException},
		{"label_created", domain.ShipmentPending},
		{"linehaul", domain.ShipmentInTransit}, // Незнакомые статусы считаем движением
	}
	for _, c := range cases {
		if got := mapCarrierStatus(c.in); got != c.want {
			t.Errorf("mapCarrierStatus(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestDetectDelay(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	silent := now.Add(-8 * 24 * time.Hour)

	cases := []struct {
		name string
		sh   domain.Shipment
		want bool
	}{
		{"eta passed", domain.Shipment{Status: domain.ShipmentInTransit, ETA: &past}, true},
		{"eta ahead", domain.Shipment{Status: domain.ShipmentInTransit, ETA: &future, LastEventAt: &past}, false},
		{"carrier silent over threshold", domain.Shipment{Status: domain.ShipmentInTransit, LastEventAt: &silent}, true},
		{"delivered never delayed", domain.Shipment{Status: domain.ShipmentDelivered, ETA: &past}, false},
		{"no data", domain.Shipment{Status: domain.ShipmentPending}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := detectDelay(c.sh, now); got != c.want {
				t.Errorf("detectDelay = %v, want %v", got, c.want)
			}
		})
	}
}
