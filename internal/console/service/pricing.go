package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PricingRepository описывает требования сервиса к хранилищу цен
type PricingRepository interface {
	ListPriceItems(ctx context.Context, search string, bucket domain.PriceBucket) ([]domain.PriceItem, error)
	SetItemPrice(ctx context.Context, sku string, price float64) error
	ListTargetPrices(ctx context.Context) ([]domain.TargetPrice, error)
	UpsertTargetPrice(ctx context.Context, t domain.TargetPrice) error
	DeleteTargetPrice(ctx context.Context, sku string) error
	ListPriceUpdates(ctx context.Context, status domain.PriceUpdateStatus) ([]*domain.PriceUpdate, error)
	DecidePriceUpdate(ctx context.Context, id string, status domain.PriceUpdateStatus, reviewerID, comment string) (taskID string, sku string, proposed float64, err error)
	MarkUpdateApplied(ctx context.Context, id string) error
	GetRuleByID(ctx context.Context, id string) (*domain.GuardRule, error)
	GetAllRules(ctx context.Context) ([]domain.GuardRule, error)
	CreateRule(ctx context.Context, r *domain.GuardRule) error
	UpdateRule(ctx context.Context, r *domain.GuardRule) error
	DeleteRule(ctx context.Context, id string) error
}

type PricingService struct {
	repo   PricingRepository
	rdb    *redis.Client
	trail  audit.Recorder
	logger *zap.Logger
}

func NewPricingService(repo PricingRepository, rdb *redis.Client, trail audit.Recorder, logger *zap.Logger) *PricingService {
	return &PricingService{
		repo:   repo,
		rdb:    rdb,
		trail:  trail,
		logger: logger.Named("pricing-service"),
	}
}

func (s *PricingService) ListItems(ctx context.Context, search string, bucket domain.PriceBucket) ([]domain.PriceItem, error) {
	items, err := s.repo.ListPriceItems(ctx, search, bucket)
	if err != nil {
		s.logger.Error("failed to list price items", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch price items: %w", err)
	}
	if items == nil {
		return []domain.PriceItem{}, nil
	}
	return items, nil
}

// Analysis раскладывает каталог по бакетам для вкладки конкурентного анализа
func (s *PricingService) Analysis(ctx context.Context) (*domain.PriceAnalysis, error) {
	items, err := s.repo.ListPriceItems(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch items for analysis: %w", err)
	}

	a := &domain.PriceAnalysis{
		Overpriced:  make([]domain.PriceItem, 0),
		Underpriced: make([]domain.PriceItem, 0),
		Competitive: make([]domain.PriceItem, 0),
	}
	for _, it := range items {
		switch it.Bucket {
		case domain.BucketOverpriced:
			a.Overpriced = append(a.Overpriced, it)
		case domain.BucketUnderpriced:
			a.Underpriced = append(a.Underpriced, it)
		case domain.BucketCompetitive:
			a.Competitive = append(a.Competitive, it)
		default:
			// Нет данных конкурентов — позиция еще не сканировалась
			a.Unscanned++
		}
	}
	return a, nil
}

func (s *PricingService) Targets(ctx context.Context) ([]domain.TargetPrice, error) {
	targets, err := s.repo.ListTargetPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch target prices: %w", err)
	}
	if targets == nil {
		return []domain.TargetPrice{}, nil
	}
	return targets, nil
}

func (s *PricingService) SaveTarget(ctx context.Context, t domain.TargetPrice, actor string) error {
	if t.SKU == "" {
		return fmt.Errorf("sku is required")
	}
	if t.Floor > t.Target || (t.Ceiling > 0 && t.Target > t.Ceiling) {
		return fmt.Errorf("invalid corridor: floor <= target <= ceiling expected")
	}
	t.UpdatedBy = actor

	if err := s.repo.UpsertTargetPrice(ctx, t); err != nil {
		return err
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   "pricing.target_save",
		Entity:   "target_price",
		EntityID: t.SKU,
		Detail:   map[string]interface{}{"floor": t.Floor, "target": t.Target, "ceiling": t.Ceiling},
	})
	return nil
}

func (s *PricingService) DeleteTarget(ctx context.Context, sku, actor string) error {
	if err := s.repo.DeleteTargetPrice(ctx, sku); err != nil {
		return err
	}
	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   "pricing.target_delete",
		Entity:   "target_price",
		EntityID: sku,
	})
	return nil
}

func (s *PricingService) Updates(ctx context.Context, status domain.PriceUpdateStatus) ([]*domain.PriceUpdate, error) {
	updates, err := s.repo.ListPriceUpdates(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch price updates: %w", err)
	}
	if updates == nil {
		return []*domain.PriceUpdate{}, nil
	}
	return updates, nil
}

// Decide фиксирует решение оператора по staging-строке.
// При одобрении цена сразу применяется; ждущая джоба будится Redis-сигналом.
func (s *PricingService) Decide(ctx context.Context, updateID string, approved bool, reviewerID, comment string) error {
	status := domain.PriceUpdateRejected
	if approved {
		status = domain.PriceUpdateApproved
	}

	// 1. Атомарно обновляем БД (WHERE status = 'PENDING' исключает гонку)
	taskID, sku, proposed, err := s.repo.DecidePriceUpdate(ctx, updateID, status, reviewerID, comment)
	if err != nil {
		s.logger.Error("failed to persist price decision",
			zap.String("update_id", updateID),
			zap.String("reviewer_id", reviewerID),
			zap.Error(err))
		return err
	}

	// 2. Применяем одобренную цену
	if approved {
		if err := s.repo.SetItemPrice(ctx, sku, proposed); err != nil {
			s.logger.Error("decision saved but price not applied",
				zap.String("sku", sku), zap.Error(err))
			return fmt.Errorf("price apply failed: %w", err)
		}
		if err := s.repo.MarkUpdateApplied(ctx, updateID); err != nil {
			s.logger.Warn("price applied but staging row not marked", zap.Error(err))
		}
	}

	// 3. Будим джобу, ждущую решений по своей задаче
	chanName := infra.DecisionChannel(taskID)
	if err := s.rdb.Publish(ctx, chanName, string(status)).Err(); err != nil {
		// Джоба завершится по таймауту ожидания (Fail-Safe)
		s.logger.Warn("decision saved but wake signal not delivered",
			zap.String("task_id", taskID), zap.Error(err))
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    reviewerID,
		Action:   "pricing.decide",
		Entity:   "price_update",
		EntityID: updateID,
		Detail:   map[string]interface{}{"approved": approved, "sku": sku, "comment": comment},
	})

	s.logger.Info("price decision processed",
		zap.String("update_id", updateID),
		zap.String("reviewer", reviewerID),
		zap.String("result", string(status)))
	return nil
}

func (s *PricingService) Rules(ctx context.Context) ([]domain.GuardRule, error) {
	rules, err := s.repo.GetAllRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch guard rules: %w", err)
	}
	if rules == nil {
		return []domain.GuardRule{}, nil
	}
	return rules, nil
}

func (s *PricingService) RuleByID(ctx context.Context, id string) (*domain.GuardRule, error) {
	return s.repo.GetRuleByID(ctx, id)
}

// CreateRule сохраняет правило и уведомляет раннеры об обновлении кэша
func (s *PricingService) CreateRule(ctx context.Context, r *domain.GuardRule, actor string) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.SKU == "" {
		r.SKU = "*"
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return err
	}
	s.auditRule(actor, "pricing.rule_create", r.ID)
	s.notifyRuleUpdate(ctx)
	return nil
}

func (s *PricingService) UpdateRule(ctx context.Context, r *domain.GuardRule, actor string) error {
	if err := s.repo.UpdateRule(ctx, r); err != nil {
		return err
	}
	s.auditRule(actor, "pricing.rule_update", r.ID)
	s.notifyRuleUpdate(ctx)
	return nil
}

func (s *PricingService) DeleteRule(ctx context.Context, id, actor string) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.auditRule(actor, "pricing.rule_delete", id)
	s.notifyRuleUpdate(ctx)
	return nil
}

func (s *PricingService) auditRule(actor, action, ruleID string) {
	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   action,
		Entity:   "guard_rule",
		EntityID: ruleID,
	})
}

// notifyRuleUpdate шлет широковещательный сигнал: раннеры перечитают кэш правил.
// Правило уже в Postgres, поэтому сбой сигнала не отменяет запись —
// раннеры подхватят изменение при следующем Refresh.
func (s *PricingService) notifyRuleUpdate(ctx context.Context) {
	if err := s.rdb.Publish(ctx, infra.RedisChanRuleUpdate, "refresh").Err(); err != nil {
		s.logger.Warn("rule saved but refresh signal not delivered", zap.Error(err))
	}
}
