package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TrackingUpdate — свежее состояние отправления от агрегатора перевозчиков
type TrackingUpdate struct {
	Status string          `json:"status"` // В терминах перевозчика, маппим на свои
	ETA    *time.Time      `json:"eta,omitempty"`
	Events []TrackingEvent `json:"events"`
}

type TrackingEvent struct {
	ID         string    `json:"id"`
	Location   string    `json:"location"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CarrierGateway — клиент трекинг-агрегатора
type CarrierGateway struct {
	c *Client
}

func NewCarrierGateway(c *Client) *CarrierGateway {
	return &CarrierGateway{c: c}
}

// Track запрашивает состояние одного трек-номера
func (g *CarrierGateway) Track(ctx context.Context, carrier, trackingNumber string) (*TrackingUpdate, error) {
	path := fmt.Sprintf("/v1/track/%s/%s", url.PathEscape(carrier), url.PathEscape(trackingNumber))
	var out TrackingUpdate
	if err := g.c.call(ctx, "carrier.track", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
