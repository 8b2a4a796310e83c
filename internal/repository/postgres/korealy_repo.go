package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

func (s *Store) ListReconRecords(ctx context.Context, status domain.ReconStatus, unresolvedOnly bool) ([]*domain.ReconRecord, error) {
	query := `SELECT id, run_id, order_number, status, korealy_amount, shopify_amount, delta,
	                 resolved, resolved_by, note, resolved_at, created_at
	          FROM recon_records WHERE 1=1`

	var args []interface{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if unresolvedOnly {
		query += " AND NOT resolved"
	}
	query += " ORDER BY created_at DESC LIMIT 500"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query recon records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.ReconRecord, 0)
	for rows.Next() {
		var r domain.ReconRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.OrderNumber, &r.Status, &r.KorealyAmount,
			&r.ShopifyAmount, &r.Delta, &r.Resolved, &r.ResolvedBy, &r.Note,
			&r.ResolvedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan recon record: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// GetReconSummary собирает шапку вкладки одним запросом
func (s *Store) GetReconSummary(ctx context.Context) (*domain.ReconSummary, error) {
	sum := &domain.ReconSummary{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'MATCHED'),
			COUNT(*) FILTER (WHERE status = 'MISMATCH'),
			COUNT(*) FILTER (WHERE status = 'MISSING_SHOPIFY'),
			COUNT(*) FILTER (WHERE status = 'MISSING_KOREALY'),
			COUNT(*) FILTER (WHERE NOT resolved AND status <> 'MATCHED'),
			COALESCE(SUM(ABS(delta)) FILTER (WHERE status = 'MISMATCH' AND NOT resolved), 0)
		FROM recon_records`).
		Scan(&sum.Matched, &sum.Mismatch, &sum.MissingShopify, &sum.MissingKorealy,
			&sum.Unresolved, &sum.MismatchTotal)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get recon summary: %w", err)
	}
	return sum, nil
}

// InsertReconRecords пишет результат прогона сверки одной пачкой
func (s *Store) InsertReconRecords(ctx context.Context, records []domain.ReconRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.ID, r.RunID, r.OrderNumber, r.Status,
			r.KorealyAmount, r.ShopifyAmount, r.Delta, r.Resolved,
		})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"recon_records"},
		[]string{"id", "run_id", "order_number", "status", "korealy_amount", "shopify_amount", "delta", "resolved"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to copy recon records: %w", err)
	}
	return nil
}

// ResolveRecord атомарно помечает запись разобранной.
// Условие NOT resolved исключает повторное закрытие.
func (s *Store) ResolveRecord(ctx context.Context, id, userID, note string) error {
	var resolved string
	err := s.pool.QueryRow(ctx, `
		UPDATE recon_records
		SET resolved = TRUE, resolved_by = $1, note = $2, resolved_at = NOW()
		WHERE id = $3 AND NOT resolved
		RETURNING id`, userID, note, id).Scan(&resolved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyResolved
		}
		return fmt.Errorf("postgres: failed to resolve recon record: %w", err)
	}
	return nil
}

// ListOrderRefs отдает локальные заказы за окно сверки
func (s *Store) ListOrderRefs(ctx context.Context, days int) ([]domain.OrderRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT order_number, amount, created_at FROM orders
		 WHERE created_at > NOW() - ($1 || ' days')::interval`, days)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query order refs: %w", err)
	}
	defer rows.Close()

	refs := make([]domain.OrderRef, 0)
	for rows.Next() {
		var ref domain.OrderRef
		if err := rows.Scan(&ref.OrderNumber, &ref.Amount, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan order ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
