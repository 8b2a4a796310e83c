package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

// ListPriceItems возвращает позиции каталога для таблицы Pricing.
// Фильтры пустые — отдаем всё (датасеты небольшие, пагинация на фронте).
func (s *Store) ListPriceItems(ctx context.Context, search string, bucket domain.PriceBucket) ([]domain.PriceItem, error) {
	query := `SELECT sku, title, price, cost, breakeven, comp_avg, priority, stock, bucket, updated_at
	          FROM price_items`

	var args []interface{}
	where := ""
	if search != "" {
		args = append(args, "%"+search+"%")
		where = fmt.Sprintf(" WHERE (sku ILIKE $%d OR title ILIKE $%d)", len(args), len(args))
	}
	if bucket != "" {
		args = append(args, bucket)
		if where == "" {
			where = fmt.Sprintf(" WHERE bucket = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND bucket = $%d", len(args))
		}
	}
	query += where + " ORDER BY priority DESC, sku"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query price items: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	items := make([]domain.PriceItem, 0)
	for rows.Next() {
		var it domain.PriceItem
		if err := rows.Scan(&it.SKU, &it.Title, &it.Price, &it.Cost, &it.Breakeven,
			&it.CompAvg, &it.Priority, &it.Stock, &it.Bucket, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan price item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return items, nil
}

// UpsertPriceItem пишет расчетные поля, пришедшие от движка цен (price-sync)
func (s *Store) UpsertPriceItem(ctx context.Context, it domain.PriceItem) error {
	query := `
		INSERT INTO price_items (sku, title, price, cost, breakeven, comp_avg, priority, stock, bucket, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (sku) DO UPDATE SET
			title = EXCLUDED.title, price = EXCLUDED.price, cost = EXCLUDED.cost,
			breakeven = EXCLUDED.breakeven, comp_avg = EXCLUDED.comp_avg,
			priority = EXCLUDED.priority, stock = EXCLUDED.stock,
			bucket = EXCLUDED.bucket, updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query, it.SKU, it.Title, it.Price, it.Cost,
		it.Breakeven, it.CompAvg, it.Priority, it.Stock, it.Bucket)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert price item: %w", err)
	}
	return nil
}

// SetItemPrice применяет одобренную цену к позиции
func (s *Store) SetItemPrice(ctx context.Context, sku string, price float64) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE price_items SET price = $1, updated_at = NOW() WHERE sku = $2`, price, sku)
	if err != nil {
		return fmt.Errorf("postgres: failed to set price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: sku %s not found", sku)
	}
	return nil
}

func (s *Store) ListTargetPrices(ctx context.Context) ([]domain.TargetPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sku, floor_price, target_price, ceiling_price, updated_by, updated_at
		 FROM target_prices ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query target prices: %w", err)
	}
	defer rows.Close()

	targets := make([]domain.TargetPrice, 0)
	for rows.Next() {
		var t domain.TargetPrice
		if err := rows.Scan(&t.SKU, &t.Floor, &t.Target, &t.Ceiling, &t.UpdatedBy, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan target price: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetTargetPrice отдает коридор для одного SKU; nil если не задан
func (s *Store) GetTargetPrice(ctx context.Context, sku string) (*domain.TargetPrice, error) {
	var t domain.TargetPrice
	err := s.pool.QueryRow(ctx,
		`SELECT sku, floor_price, target_price, ceiling_price, updated_by, updated_at
		 FROM target_prices WHERE sku = $1`, sku).
		Scan(&t.SKU, &t.Floor, &t.Target, &t.Ceiling, &t.UpdatedBy, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get target price: %w", err)
	}
	return &t, nil
}

func (s *Store) UpsertTargetPrice(ctx context.Context, t domain.TargetPrice) error {
	query := `
		INSERT INTO target_prices (sku, floor_price, target_price, ceiling_price, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (sku) DO UPDATE SET
			floor_price = EXCLUDED.floor_price, target_price = EXCLUDED.target_price,
			ceiling_price = EXCLUDED.ceiling_price, updated_by = EXCLUDED.updated_by, updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query, t.SKU, t.Floor, t.Target, t.Ceiling, t.UpdatedBy)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert target price: %w", err)
	}
	return nil
}

func (s *Store) DeleteTargetPrice(ctx context.Context, sku string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM target_prices WHERE sku = $1`, sku)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete target price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: target price for %s not found", sku)
	}
	return nil
}

// InsertCompetitorQuotes пишет пачку найденных цен за один запрос (competitor-scan)
func (s *Store) InsertCompetitorQuotes(ctx context.Context, quotes []domain.CompetitorQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []interface{}{q.ID, q.SKU, q.Vendor, q.Price, q.URL, q.Outlier, q.SeenAt})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"competitor_quotes"},
		[]string{"id", "sku", "vendor", "price", "url", "outlier", "seen_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to copy competitor quotes: %w", err)
	}
	return nil
}

// StagePriceUpdate создает строку staging-таблицы
func (s *Store) StagePriceUpdate(ctx context.Context, u *domain.PriceUpdate) error {
	query := `INSERT INTO price_updates (id, task_id, sku, current_price, proposed_price, reason, guard_verdict, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, u.ID, u.TaskID, u.SKU, u.CurrentPrice,
		u.ProposedPrice, u.Reason, u.GuardVerdict, u.Status)
	if err != nil {
		return fmt.Errorf("postgres: failed to stage price update: %w", err)
	}
	return nil
}

// ListPriceUpdates фильтрация staging-таблицы (Decision Queue)
func (s *Store) ListPriceUpdates(ctx context.Context, status domain.PriceUpdateStatus) ([]*domain.PriceUpdate, error) {
	query := `SELECT id, task_id, sku, current_price, proposed_price, reason, guard_verdict,
	                 status, reviewer_id, comment, created_at, updated_at
	          FROM price_updates`

	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query price updates: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.PriceUpdate, 0)
	for rows.Next() {
		u, err := scanPriceUpdate(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// DecidePriceUpdate атомарно фиксирует решение оператора.
// Условие WHERE status = 'PENDING' исключает Double Decision.
// RETURNING отдает task_id для Redis-сигнала ждущей джобе.
func (s *Store) DecidePriceUpdate(ctx context.Context, id string, status domain.PriceUpdateStatus, reviewerID, comment string) (taskID string, sku string, proposed float64, err error) {
	query := `
		UPDATE price_updates
		SET status = $1,
		    reviewer_id = $2,
		    comment = $3,
		    updated_at = NOW()
		WHERE id = $4 AND status = 'PENDING'
		RETURNING task_id, sku, proposed_price`

	err = s.pool.QueryRow(ctx, query, status, reviewerID, comment, id).Scan(&taskID, &sku, &proposed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Либо ID неверный, либо решение уже было принято ранее
			return "", "", 0, domain.ErrUpdateAlreadyDecided
		}
		return "", "", 0, fmt.Errorf("postgres: failed to decide price update: %w", err)
	}
	return taskID, sku, proposed, nil
}

// MarkUpdateApplied переводит одобренную строку в APPLIED после записи цены
func (s *Store) MarkUpdateApplied(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE price_updates SET status = 'APPLIED', updated_at = NOW()
		 WHERE id = $1 AND status = 'APPROVED'`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to mark update applied: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrUpdateAlreadyDecided
	}
	return nil
}

// CountPendingByTask сообщает джобе, сколько ее строк еще ждут решения
func (s *Store) CountPendingByTask(ctx context.Context, taskID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM price_updates WHERE task_id = $1 AND status = 'PENDING'`, taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count pending updates: %w", err)
	}
	return n, nil
}

type pgxRow interface {
	Scan(dest ...interface{}) error
}

func scanPriceUpdate(row pgxRow) (*domain.PriceUpdate, error) {
	var u domain.PriceUpdate
	var reviewerID, comment sql.NullString // Обработка NULL из БД

	err := row.Scan(&u.ID, &u.TaskID, &u.SKU, &u.CurrentPrice, &u.ProposedPrice,
		&u.Reason, &u.GuardVerdict, &u.Status, &reviewerID, &comment, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reviewerID.Valid {
		val := reviewerID.String
		u.ReviewerID = &val
	}
	if comment.Valid {
		val := comment.String
		u.Comment = &val
	}
	return &u, nil
}
