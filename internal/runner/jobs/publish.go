package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/runner"
	"github.com/miraiskin/platform/internal/upstream"
	"go.uber.org/zap"
)

// Publisher — сервис публикации в Instagram (Graph API живет за ним)
type Publisher interface {
	Publish(ctx context.Context, caption, mediaURL string, hashtags []string) (*upstream.PublishResponse, error)
}

type PublishStore interface {
	GetPost(ctx context.Context, id string) (*domain.SocialPost, error)
	MarkPostPublished(ctx context.Context, id, permalink string) error
	MarkPostFailed(ctx context.Context, id, reason string) error
}

// InstagramPublish публикует один пост. post_id приходит в параметрах задачи.
type InstagramPublish struct {
	store     PublishStore
	instagram Publisher
	logger    *zap.Logger
}

func NewInstagramPublish(store PublishStore, instagram Publisher, logger *zap.Logger) *InstagramPublish {
	return &InstagramPublish{
		store:     store,
		instagram: instagram,
		logger:    logger.Named("instagram-publish"),
	}
}

func (j *InstagramPublish) Kind() domain.TaskKind { return domain.TaskInstagramPublish }

type publishParams struct {
	PostID string `json:"post_id"`
}

type publishResult struct {
	MediaID   string `json:"media_id"`
	Permalink string `json:"permalink"`
}

func (j *InstagramPublish) Run(ctx context.Context, task *domain.Task, progress runner.ProgressFunc) (json.RawMessage, error) {
	var params publishParams
	if err := json.Unmarshal(task.Params, &params); err != nil || params.PostID == "" {
		return nil, fmt.Errorf("invalid publish params: %s", string(task.Params))
	}

	post, err := j.store.GetPost(ctx, params.PostID)
	if err != nil {
		return nil, fmt.Errorf("fetch post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %s not found", params.PostID)
	}
	if post.Status == domain.PostPublished {
		return nil, fmt.Errorf("post %s already published", params.PostID)
	}
	progress(20)

	resp, err := j.instagram.Publish(ctx, post.Caption, post.MediaURL, post.Hashtags)
	if err != nil {
		// Фиксируем причину на посте, чтобы вкладка показала FAILED с текстом
		if markErr := j.store.MarkPostFailed(ctx, post.ID, err.Error()); markErr != nil {
			j.logger.Error("failed to mark post as failed", zap.String("post_id", post.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("instagram publish: %w", err)
	}
	progress(80)

	if err := j.store.MarkPostPublished(ctx, post.ID, resp.Permalink); err != nil {
		return nil, fmt.Errorf("mark published: %w", err)
	}

	j.logger.Info("post published",
		zap.String("post_id", post.ID),
		zap.String("permalink", resp.Permalink))

	return json.Marshal(publishResult{MediaID: resp.MediaID, Permalink: resp.Permalink})
}
