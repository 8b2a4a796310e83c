package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

func (s *Store) GetRuleByID(ctx context.Context, id string) (*domain.GuardRule, error) {
	var r domain.GuardRule
	err := s.pool.QueryRow(ctx,
		`SELECT id, sku, conditions, created_at, updated_at FROM guard_rules WHERE id = $1`, id).
		Scan(&r.ID, &r.SKU, &r.Conditions, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get guard rule: %w", err)
	}
	return &r, nil
}

// GetAllRules читает таблицу целиком для прогрева in-memory кэша
func (s *Store) GetAllRules(ctx context.Context) ([]domain.GuardRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sku, conditions, created_at, updated_at FROM guard_rules`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query guard rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.GuardRule, 0)
	for rows.Next() {
		var r domain.GuardRule
		if err := rows.Scan(&r.ID, &r.SKU, &r.Conditions, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan guard rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) CreateRule(ctx context.Context, r *domain.GuardRule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO guard_rules (id, sku, conditions) VALUES ($1, $2, $3)`,
		r.ID, r.SKU, r.Conditions)
	if err != nil {
		return fmt.Errorf("postgres: failed to create guard rule: %w", err)
	}
	return nil
}

func (s *Store) UpdateRule(ctx context.Context, r *domain.GuardRule) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE guard_rules SET sku = $1, conditions = $2, updated_at = NOW() WHERE id = $3`,
		r.SKU, r.Conditions, r.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to update guard rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: guard rule %s not found", r.ID)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM guard_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete guard rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: guard rule %s not found", id)
	}
	return nil
}
