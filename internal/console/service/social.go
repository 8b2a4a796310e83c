package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/upstream"
	"go.uber.org/zap"
)

// SocialRepository описывает требования сервиса к хранилищу контента
type SocialRepository interface {
	ListPosts(ctx context.Context, status domain.PostStatus) ([]*domain.SocialPost, error)
	GetPost(ctx context.Context, id string) (*domain.SocialPost, error)
	CreatePost(ctx context.Context, p *domain.SocialPost) error
	ListStrategies(ctx context.Context) ([]domain.SocialStrategy, error)
	UpdateStrategy(ctx context.Context, st *domain.SocialStrategy) error
	InsertDecision(ctx context.Context, d *domain.AgentDecision) error
	ListDecisions(ctx context.Context, postID, action string) ([]domain.AgentDecision, error)
}

// CaptionGenerator — то, что сервису нужно от AI-генератора
type CaptionGenerator interface {
	Captions(ctx context.Context, req upstream.GenerateRequest) (*upstream.GenerateResponse, error)
}

type SocialService struct {
	repo      SocialRepository
	generator CaptionGenerator
	trail     audit.Recorder
	logger    *zap.Logger
}

func NewSocialService(repo SocialRepository, generator CaptionGenerator, trail audit.Recorder, logger *zap.Logger) *SocialService {
	return &SocialService{
		repo:      repo,
		generator: generator,
		trail:     trail,
		logger:    logger.Named("social-service"),
	}
}

func (s *SocialService) Posts(ctx context.Context, status string) ([]*domain.SocialPost, error) {
	// Статусы в константах — верхним регистром
	posts, err := s.repo.ListPosts(ctx, domain.PostStatus(strings.ToUpper(status)))
	if err != nil {
		s.logger.Error("failed to list posts", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch posts: %w", err)
	}
	if posts == nil {
		return []*domain.SocialPost{}, nil
	}
	return posts, nil
}

func (s *SocialService) Post(ctx context.Context, id string) (*domain.SocialPost, error) {
	return s.repo.GetPost(ctx, id)
}

func (s *SocialService) CreateDraft(ctx context.Context, p *domain.SocialPost, actor string) (*domain.SocialPost, error) {
	if p.Caption == "" {
		return nil, fmt.Errorf("caption is required")
	}
	p.ID = uuid.New().String()
	p.Status = domain.PostDraft

	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, err
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   "social.draft_create",
		Entity:   "social_post",
		EntityID: p.ID,
	})
	return p, nil
}

// Generate синхронно запрашивает варианты текста у AI-сервиса.
// Каждый вызов фиксируется в журнале решений агента.
func (s *SocialService) Generate(ctx context.Context, req domain.CaptionRequest, actor string) (*domain.CaptionVariants, error) {
	strategies, err := s.repo.ListStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch strategies: %w", err)
	}

	greq := upstream.GenerateRequest{
		ProductSKU: req.ProductSKU,
		Brief:      req.Brief,
	}
	for _, st := range strategies {
		if st.ID == req.StrategyID {
			greq.Tone = st.Tone
			greq.Topics = strings.Join(st.Topics, ", ")
			break
		}
	}

	resp, err := s.generator.Captions(ctx, greq)
	if err != nil {
		s.logger.Error("caption generation failed",
			zap.String("sku", req.ProductSKU), zap.Error(err))
		return nil, fmt.Errorf("generator: %w", err)
	}

	decision := &domain.AgentDecision{
		ID:     uuid.New().String(),
		Action: "generate_caption",
		Input:  req.Brief,
		Output: strings.Join(resp.Variants, "\n---\n"),
		Model:  resp.Model,
	}
	if err := s.repo.InsertDecision(ctx, decision); err != nil {
		// Журнал не должен ломать основной сценарий
		s.logger.Warn("failed to record agent decision", zap.Error(err))
	}

	return &domain.CaptionVariants{Variants: resp.Variants, Model: resp.Model}, nil
}

func (s *SocialService) Strategies(ctx context.Context) ([]domain.SocialStrategy, error) {
	strategies, err := s.repo.ListStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch strategies: %w", err)
	}
	if strategies == nil {
		return []domain.SocialStrategy{}, nil
	}
	return strategies, nil
}

func (s *SocialService) SaveStrategy(ctx context.Context, st *domain.SocialStrategy, actor string) error {
	if err := s.repo.UpdateStrategy(ctx, st); err != nil {
		return err
	}
	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   "social.strategy_save",
		Entity:   "social_strategy",
		EntityID: st.ID,
	})
	return nil
}

func (s *SocialService) Decisions(ctx context.Context, postID, action string) ([]domain.AgentDecision, error) {
	decisions, err := s.repo.ListDecisions(ctx, postID, action)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch agent decisions: %w", err)
	}
	if decisions == nil {
		return []domain.AgentDecision{}, nil
	}
	return decisions, nil
}
