package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/miraiskin/platform/internal/domain"
)

// GetOverview Единый дашборд вкладки Reports
func (s *Store) GetOverview(ctx context.Context) (*domain.OverviewReport, error) {
	d := &domain.OverviewReport{}

	// 1. Отправления
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status NOT IN ('delivered', 'exception')),
			COUNT(*) FILTER (WHERE delay_detected),
			COUNT(*) FILTER (WHERE status = 'exception')
		FROM shipments`).
		Scan(&d.Fulfillment.ActiveShipments, &d.Fulfillment.Delayed, &d.Fulfillment.Exceptions)
	if err != nil {
		return nil, fmt.Errorf("postgres: overview shipments: %w", err)
	}

	// 2. Цены
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM price_updates WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE bucket = 'OVERPRICED'),
			COUNT(*) FILTER (WHERE bucket = 'UNDERPRICED')
		FROM price_items`).
		Scan(&d.Pricing.PendingUpdates, &d.Pricing.Overpriced, &d.Pricing.Underpriced)
	if err != nil {
		return nil, fmt.Errorf("postgres: overview pricing: %w", err)
	}

	// 3. Сверка
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'MISMATCH' AND NOT resolved),
			COALESCE(SUM(ABS(delta)) FILTER (WHERE status = 'MISMATCH' AND NOT resolved), 0)
		FROM recon_records`).
		Scan(&d.Recon.UnresolvedMismatches, &d.Recon.MismatchTotal)
	if err != nil {
		return nil, fmt.Errorf("postgres: overview recon: %w", err)
	}

	// 4. Метрики задач за последние 60 минут.
	// PERCENTILE_CONT дает честный P95 длительности джоб.
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (
				ORDER BY EXTRACT(EPOCH FROM (finished_at - started_at)) * 1000), 0)
		FROM tasks
		WHERE finished_at > NOW() - INTERVAL '60 minutes'`).
		Scan(&d.Jobs.LastHour, &d.Jobs.Failed, &d.Jobs.P95DurationMs)
	if err != nil {
		return nil, fmt.Errorf("postgres: overview jobs: %w", err)
	}

	d.Jobs.PerMinute = float64(d.Jobs.LastHour) / 60

	return d, nil
}

// GetSalesPoints отдает строки отчета по продажам за период
func (s *Store) GetSalesPoints(ctx context.Context, from, to time.Time) ([]domain.SalesPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*),
		       COALESCE(SUM(amount), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query sales points: %w", err)
	}
	defer rows.Close()

	points := make([]domain.SalesPoint, 0)
	for rows.Next() {
		var p domain.SalesPoint
		if err := rows.Scan(&p.Date, &p.Orders, &p.Revenue); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan sales point: %w", err)
		}
		if p.Orders > 0 {
			p.AOV = p.Revenue / float64(p.Orders)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
