package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/runner"
	"github.com/miraiskin/platform/internal/upstream"
	"go.uber.org/zap"
)

// Tracker — агрегатор перевозчиков: состояние одного трек-номера
type Tracker interface {
	Track(ctx context.Context, carrier, trackingNumber string) (*upstream.TrackingUpdate, error)
}

type CarrierSyncStore interface {
	ListActiveShipments(ctx context.Context) ([]domain.Shipment, error)
	UpdateShipmentState(ctx context.Context, sh domain.Shipment) error
	InsertCarrierEvents(ctx context.Context, events []domain.CarrierEvent) error
}

// Порог тишины: если от перевозчика нет событий дольше — отправление "зависло"
const stallThreshold = 7 * 24 * time.Hour

// CarrierSync обходит активные отправления, подтягивает свежие события
// и выставляет флаг задержки.
type CarrierSync struct {
	store   CarrierSyncStore
	gateway Tracker
	logger  *zap.Logger
}

func NewCarrierSync(store CarrierSyncStore, gateway Tracker, logger *zap.Logger) *CarrierSync {
	return &CarrierSync{
		store:   store,
		gateway: gateway,
		logger:  logger.Named("carrier-sync"),
	}
}

func (j *CarrierSync) Kind() domain.TaskKind { return domain.TaskCarrierSync }

type carrierSyncResult struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Delayed   int `json:"delayed"`
	Delivered int `json:"delivered"`
	Errors    int `json:"errors"` // Перевозчик не ответил; доберем в следующем синке
}

func (j *CarrierSync) Run(ctx context.Context, task *domain.Task, progress runner.ProgressFunc) (json.RawMessage, error) {
	shipments, err := j.store.ListActiveShipments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active shipments: %w", err)
	}
	progress(5)

	res := carrierSyncResult{Checked: len(shipments)}

	for i, sh := range shipments {
		upd, err := j.gateway.Track(ctx, sh.Carrier, sh.TrackingNumber)
		if err != nil {
			// Один недоступный перевозчик не должен ронять весь синк
			res.Errors++
			j.logger.Warn("tracking request failed",
				zap.String("carrier", sh.Carrier),
				zap.String("tracking", sh.TrackingNumber),
				zap.Error(err))
			continue
		}

		events := make([]domain.CarrierEvent, 0, len(upd.Events))
		var lastEvent *time.Time
		for _, e := range upd.Events {
			events = append(events, domain.CarrierEvent{
				ID:         e.ID,
				ShipmentID: sh.ID,
				Location:   e.Location,
				Message:    e.Message,
				OccurredAt: e.OccurredAt,
			})
			if lastEvent == nil || e.OccurredAt.After(*lastEvent) {
				t := e.OccurredAt
				lastEvent = &t
			}
		}
		// У некоторых перевозчиков события приходят без ID
		for k := range events {
			if events[k].ID == "" {
				events[k].ID = uuid.New().String()
			}
		}
		if len(events) > 0 {
			if err := j.store.InsertCarrierEvents(ctx, events); err != nil {
				return nil, fmt.Errorf("insert events for %s: %w", sh.ID, err)
			}
		}

		sh.Status = mapCarrierStatus(upd.Status)
		sh.ETA = upd.ETA
		if lastEvent != nil {
			sh.LastEventAt = lastEvent
		}
		sh.DelayDetected = detectDelay(sh, time.Now())

		if err := j.store.UpdateShipmentState(ctx, sh); err != nil {
			return nil, fmt.Errorf("update shipment %s: %w", sh.ID, err)
		}
		res.Updated++
		if sh.DelayDetected {
			res.Delayed++
		}
		if sh.Status == domain.ShipmentDelivered {
			res.Delivered++
		}

		progress(5 + (i+1)*90/len(shipments))
	}

	return json.Marshal(res)
}

// mapCarrierStatus переводит статус агрегатора в наш словарь
func mapCarrierStatus(s string) domain.ShipmentStatus {
	switch s {
	case "delivered":
		return domain.ShipmentDelivered
	case "customs", "customs_hold":
		return domain.ShipmentCustoms
	case "exception", "returned", "lost":
		return domain.ShipmentException
	case "pending", "label_created":
		return domain.ShipmentPending
	default:
		return domain.ShipmentInTransit
	}
}

// detectDelay: просроченный ETA или тишина от перевозчика дольше порога
func detectDelay(sh domain.Shipment, now time.Time) bool {
	if sh.Status == domain.ShipmentDelivered {
		return false
	}
	if sh.ETA != nil && now.After(*sh.ETA) {
		return true
	}
	if sh.LastEventAt != nil && now.Sub(*sh.LastEventAt) > stallThreshold {
		return true
	}
	return false
}
