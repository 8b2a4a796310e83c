package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/miraiskin/platform/internal/domain"
)

func (s *Store) ListPosts(ctx context.Context, status domain.PostStatus) ([]*domain.SocialPost, error) {
	query := `SELECT id, caption, media_url, hashtags, status, strategy_id, scheduled_at,
	                 published_at, permalink, fail_reason, created_at, updated_at
	          FROM social_posts`

	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.SocialPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) GetPost(ctx context.Context, id string) (*domain.SocialPost, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, caption, media_url, hashtags, status, strategy_id, scheduled_at,
		        published_at, permalink, fail_reason, created_at, updated_at
		 FROM social_posts WHERE id = $1`, id)

	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Возвращаем nil для 404 в хендлере
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get post: %w", err)
	}
	return p, nil
}

func scanPost(row pgxRow) (*domain.SocialPost, error) {
	var p domain.SocialPost
	err := row.Scan(&p.ID, &p.Caption, &p.MediaURL, &p.Hashtags, &p.Status, &p.StrategyID,
		&p.ScheduledAt, &p.PublishedAt, &p.Permalink, &p.FailReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, p *domain.SocialPost) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO social_posts (id, caption, media_url, hashtags, status, strategy_id, scheduled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Caption, p.MediaURL, p.Hashtags, p.Status, p.StrategyID, p.ScheduledAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create post: %w", err)
	}
	return nil
}

// MarkPostPublished фиксирует успешную публикацию и permalink из Instagram
func (s *Store) MarkPostPublished(ctx context.Context, id, permalink string) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE social_posts
		 SET status = 'PUBLISHED', permalink = $1, published_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status IN ('DRAFT', 'SCHEDULED')`, permalink, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to mark post published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: post %s not publishable", id)
	}
	return nil
}

func (s *Store) MarkPostFailed(ctx context.Context, id, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE social_posts SET status = 'FAILED', fail_reason = $1, updated_at = NOW() WHERE id = $2`,
		reason, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to mark post failed: %w", err)
	}
	return nil
}

func (s *Store) ListStrategies(ctx context.Context) ([]domain.SocialStrategy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, tone, topics, posts_per_week, active, updated_at
		 FROM social_strategies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query strategies: %w", err)
	}
	defer rows.Close()

	strategies := make([]domain.SocialStrategy, 0)
	for rows.Next() {
		var st domain.SocialStrategy
		if err := rows.Scan(&st.ID, &st.Name, &st.Tone, &st.Topics, &st.PostsPerWk, &st.Active, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan strategy: %w", err)
		}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

func (s *Store) UpdateStrategy(ctx context.Context, st *domain.SocialStrategy) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE social_strategies
		 SET name = $1, tone = $2, topics = $3, posts_per_week = $4, active = $5, updated_at = NOW()
		 WHERE id = $6`,
		st.Name, st.Tone, st.Topics, st.PostsPerWk, st.Active, st.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to update strategy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: strategy %s not found", st.ID)
	}
	return nil
}

func (s *Store) InsertDecision(ctx context.Context, d *domain.AgentDecision) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_decisions (id, post_id, action, input, output, model)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)`,
		d.ID, d.PostID, d.Action, d.Input, d.Output, d.Model)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert agent decision: %w", err)
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, postID, action string) ([]domain.AgentDecision, error) {
	query := `SELECT id, COALESCE(post_id, ''), action, input, output, model, created_at
	          FROM agent_decisions WHERE 1=1`

	var args []interface{}
	if postID != "" {
		args = append(args, postID)
		query += fmt.Sprintf(" AND post_id = $%d", len(args))
	}
	if action != "" {
		args = append(args, action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query agent decisions: %w", err)
	}
	defer rows.Close()

	decisions := make([]domain.AgentDecision, 0)
	for rows.Next() {
		var d domain.AgentDecision
		if err := rows.Scan(&d.ID, &d.PostID, &d.Action, &d.Input, &d.Output, &d.Model, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan agent decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
