package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

// ShipmentFilter — фильтры таблицы Tracking, все поля опциональны
type ShipmentFilter struct {
	Carrier string
	Status  domain.ShipmentStatus
	Delayed *bool
}

func (s *Store) ListShipments(ctx context.Context, f ShipmentFilter) ([]domain.Shipment, error) {
	query := `SELECT id, order_number, tracking_number, carrier, status, delay_detected,
	                 eta, last_event_at, created_at, updated_at
	          FROM shipments WHERE 1=1`

	var args []interface{}
	if f.Carrier != "" {
		args = append(args, f.Carrier)
		query += fmt.Sprintf(" AND carrier = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Delayed != nil {
		args = append(args, *f.Delayed)
		query += fmt.Sprintf(" AND delay_detected = $%d", len(args))
	}
	query += " ORDER BY created_at DESC LIMIT 500"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0)
	for rows.Next() {
		var sh domain.Shipment
		if err := rows.Scan(&sh.ID, &sh.OrderNumber, &sh.TrackingNumber, &sh.Carrier, &sh.Status,
			&sh.DelayDetected, &sh.ETA, &sh.LastEventAt, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan shipment: %w", err)
		}
		shipments = append(shipments, sh)
	}
	return shipments, rows.Err()
}

// GetShipment возвращает отправление вместе с историей событий
func (s *Store) GetShipment(ctx context.Context, id string) (*domain.Shipment, error) {
	var sh domain.Shipment
	err := s.pool.QueryRow(ctx,
		`SELECT id, order_number, tracking_number, carrier, status, delay_detected,
		        eta, last_event_at, created_at, updated_at
		 FROM shipments WHERE id = $1`, id).
		Scan(&sh.ID, &sh.OrderNumber, &sh.TrackingNumber, &sh.Carrier, &sh.Status,
			&sh.DelayDetected, &sh.ETA, &sh.LastEventAt, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Возвращаем nil для 404 в хендлере
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get shipment: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, shipment_id, location, message, occurred_at
		 FROM carrier_events WHERE shipment_id = $1 ORDER BY occurred_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query carrier events: %w", err)
	}
	defer rows.Close()

	sh.Events = make([]domain.CarrierEvent, 0)
	for rows.Next() {
		var ev domain.CarrierEvent
		if err := rows.Scan(&ev.ID, &ev.ShipmentID, &ev.Location, &ev.Message, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan carrier event: %w", err)
		}
		sh.Events = append(sh.Events, ev)
	}
	return &sh, rows.Err()
}

// GetTrackingStats собирает бейджи одним проходом по таблице
func (s *Store) GetTrackingStats(ctx context.Context) (*domain.TrackingStats, error) {
	st := &domain.TrackingStats{ByCarrier: make(map[string]int)}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'in_transit'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE delay_detected),
			COUNT(*) FILTER (WHERE status = 'exception')
		FROM shipments`).
		Scan(&st.Total, &st.InTransit, &st.Delivered, &st.Delayed, &st.Exceptions)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get tracking stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT carrier, COUNT(*) FROM shipments GROUP BY carrier`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get carrier breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var carrier string
		var n int
		if err := rows.Scan(&carrier, &n); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan carrier breakdown: %w", err)
		}
		st.ByCarrier[carrier] = n
	}
	return st, rows.Err()
}

// ListActiveShipments отдает недоставленные отправления для carrier-sync.
// Выбираем только то, что нужно джобе, без истории событий.
func (s *Store) ListActiveShipments(ctx context.Context) ([]domain.Shipment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_number, tracking_number, carrier, status, delay_detected,
		        eta, last_event_at, created_at, updated_at
		 FROM shipments WHERE status NOT IN ('delivered', 'exception')`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query active shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0)
	for rows.Next() {
		var sh domain.Shipment
		if err := rows.Scan(&sh.ID, &sh.OrderNumber, &sh.TrackingNumber, &sh.Carrier, &sh.Status,
			&sh.DelayDetected, &sh.ETA, &sh.LastEventAt, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan shipment: %w", err)
		}
		shipments = append(shipments, sh)
	}
	return shipments, rows.Err()
}

// UpdateShipmentState пишет свежий статус от перевозчика
func (s *Store) UpdateShipmentState(ctx context.Context, sh domain.Shipment) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE shipments
		 SET status = $1, delay_detected = $2, eta = $3, last_event_at = $4, updated_at = NOW()
		 WHERE id = $5`,
		sh.Status, sh.DelayDetected, sh.ETA, sh.LastEventAt, sh.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to update shipment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: shipment %s not found", sh.ID)
	}
	return nil
}

// InsertCarrierEvents дописывает новые события истории; дубликаты игнорируем
func (s *Store) InsertCarrierEvents(ctx context.Context, events []domain.CarrierEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(
			`INSERT INTO carrier_events (id, shipment_id, location, message, occurred_at)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			ev.ID, ev.ShipmentID, ev.Location, ev.Message, ev.OccurredAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: failed to insert carrier event: %w", err)
		}
	}
	return nil
}
