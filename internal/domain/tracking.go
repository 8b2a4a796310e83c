package domain

import "time"

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"    // Лейбл создан, движения нет
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentCustoms   ShipmentStatus = "customs"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentException ShipmentStatus = "exception" // Потеря/возврат/отказ
)

// Shipment — отправление для таблицы Tracking
type Shipment struct {
	ID             string         `json:"id"` // UUID
	OrderNumber    string         `json:"order_number"`
	TrackingNumber string         `json:"tracking_number"`
	Carrier        string         `json:"carrier"` // "yanwen", "cainiao", "usps"...
	Status         ShipmentStatus `json:"status"`

	// DelayDetected выставляет carrier-sync, когда движения нет дольше порога
	DelayDetected bool       `json:"delay_detected"`
	ETA           *time.Time `json:"eta,omitempty"`
	LastEventAt   *time.Time `json:"last_event_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// События заполняются только в детальной карточке
	Events []CarrierEvent `json:"events,omitempty"`
}

// CarrierEvent — одна строка истории от перевозчика
type CarrierEvent struct {
	ID         string    `json:"id"`
	ShipmentID string    `json:"shipment_id"`
	Location   string    `json:"location"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TrackingStats — бейджи над таблицей Tracking
type TrackingStats struct {
	Total      int            `json:"total"`
	InTransit  int            `json:"in_transit"`
	Delivered  int            `json:"delivered"`
	Delayed    int            `json:"delayed"`
	Exceptions int            `json:"exceptions"`
	ByCarrier  map[string]int `json:"by_carrier"`
}
