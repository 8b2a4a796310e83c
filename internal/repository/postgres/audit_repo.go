package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/miraiskin/platform/internal/audit"
)

// WriteBatch сохраняет пачку событий аудита за один INSERT
func (s *Store) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_events
	numFields := 7
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7)

		detail, _ := json.Marshal(e.Detail)
		vals = append(vals, e.ID, e.Actor, e.Action, e.Entity, e.EntityID, detail, e.Timestamp)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO audit_events (id, actor, action, entity, entity_id, detail, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := s.pool.Exec(ctx, query, vals...)
	return err
}

// FetchEvents читает журнал действий с фильтрацией для консоли
func (s *Store) FetchEvents(ctx context.Context, actor, action string) ([]audit.Event, error) {
	query := `SELECT id, actor, action, entity, entity_id, detail, timestamp
	          FROM audit_events WHERE 1=1`

	var args []interface{}
	if actor != "" {
		args = append(args, actor)
		query += fmt.Sprintf(" AND actor = $%d", len(args))
	}
	if action != "" {
		args = append(args, action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	query += " ORDER BY timestamp DESC LIMIT 200"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var e audit.Event
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit event: %w", err)
		}
		_ = json.Unmarshal(detail, &e.Detail)
		events = append(events, e)
	}
	return events, rows.Err()
}
