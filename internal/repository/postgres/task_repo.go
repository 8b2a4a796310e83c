package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, kind, status, params, requested_by)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Kind, t.Status, t.Params, t.RequestedBy)
	if err != nil {
		return fmt.Errorf("postgres: failed to create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, params, progress, result, error, requested_by,
		        started_at, finished_at, created_at, updated_at
		 FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, kind domain.TaskKind, status domain.TaskStatus) ([]*domain.Task, error) {
	query := `SELECT id, kind, status, params, progress, result, error, requested_by,
	                 started_at, finished_at, created_at, updated_at
	          FROM tasks WHERE 1=1`

	var args []interface{}
	if kind != "" {
		args = append(args, kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimPendingTask атомарно забирает самую старую PENDING-задачу.
// SKIP LOCKED позволяет держать несколько раннеров без двойного исполнения.
// Виды из excluded (пауза) не забираем. Возвращает nil, если очередь пуста.
func (s *Store) ClaimPendingTask(ctx context.Context, excluded []string) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET status = 'RUNNING', started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = 'PENDING' AND NOT (kind = ANY($1))
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, status, params, progress, result, error, requested_by,
		          started_at, finished_at, created_at, updated_at`

	if excluded == nil {
		excluded = []string{}
	}
	t, err := scanTask(s.pool.QueryRow(ctx, query, excluded))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to claim task: %w", err)
	}
	return t, nil
}

// SetTaskProgress двигает индикатор; статус не трогаем
func (s *Store) SetTaskProgress(ctx context.Context, id string, progress int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE tasks SET progress = $1, updated_at = NOW() WHERE id = $2 AND status = 'RUNNING'`,
		progress, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set task progress: %w", err)
	}
	return nil
}

// FinishTask переводит задачу в терминальный статус ровно один раз.
// Условие WHERE status = 'RUNNING' гарантирует единственность перехода.
func (s *Store) FinishTask(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error {
	if status != domain.TaskCompleted && status != domain.TaskFailed {
		return domain.ErrTaskNotRunning
	}

	res, err := s.pool.Exec(ctx,
		`UPDATE tasks
		 SET status = $1, result = $2, error = $3, progress = 100, finished_at = NOW(), updated_at = NOW()
		 WHERE id = $4 AND status = 'RUNNING'`,
		status, result, errMsg, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to finish task: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrTaskTerminal
	}
	return nil
}

func scanTask(row pgxRow) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Kind, &t.Status, &t.Params, &t.Progress, &t.Result, &t.Error,
		&t.RequestedBy, &t.StartedAt, &t.FinishedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
