package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fakeTrail собирает события аудита в память
type fakeTrail struct {
	events []audit.Event
}

func (f *fakeTrail) Log(e audit.Event) { f.events = append(f.events, e) }

// fakePricingRepo реализует PricingRepository поверх срезов
type fakePricingRepo struct {
	PricingRepository // Паникуем на невызываемых методах

	items   []domain.PriceItem
	targets map[string]domain.TargetPrice
	deleted []string
	rules   []*domain.GuardRule
}

func (f *fakePricingRepo) CreateRule(_ context.Context, r *domain.GuardRule) error {
	f.rules = append(f.rules, r)
	return nil
}

func (f *fakePricingRepo) ListPriceItems(_ context.Context, _ string, _ domain.PriceBucket) ([]domain.PriceItem, error) {
	return f.items, nil
}

func (f *fakePricingRepo) UpsertTargetPrice(_ context.Context, t domain.TargetPrice) error {
	if f.targets == nil {
		f.targets = make(map[string]domain.TargetPrice)
	}
	f.targets[t.SKU] = t
	return nil
}

func (f *fakePricingRepo) DeleteTargetPrice(_ context.Context, sku string) error {
	f.deleted = append(f.deleted, sku)
	return nil
}

func TestAnalysisBuckets(t *testing.T) {
	repo := &fakePricingRepo{items: []domain.PriceItem{
		{SKU: "A", Bucket: domain.BucketOverpriced},
		{SKU: "B", Bucket: domain.BucketUnderpriced},
		{SKU: "C", Bucket: domain.BucketCompetitive},
		{SKU: "D", Bucket: domain.BucketOverpriced},
		{SKU: "E"}, // еще не сканировалась
	}}
	svc := NewPricingService(repo, nil, &fakeTrail{}, zap.NewNop())

	a, err := svc.Analysis(context.Background())
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if len(a.Overpriced) != 2 || len(a.Underpriced) != 1 || len(a.Competitive) != 1 {
		t.Errorf("unexpected bucket sizes: %d/%d/%d",
			len(a.Overpriced), len(a.Underpriced), len(a.Competitive))
	}
	if a.Unscanned != 1 {
		t.Errorf("Unscanned = %d, want 1", a.Unscanned)
	}
}

func TestSaveTargetValidation(t *testing.T) {
	repo := &fakePricingRepo{}
	trail := &fakeTrail{}
	svc := NewPricingService(repo, nil, trail, zap.NewNop())
	ctx := context.Background()

	if err := svc.SaveTarget(ctx, domain.TargetPrice{Floor: 10, Target: 15, Ceiling: 20}, "op-1"); err == nil {
		t.Error("missing sku must be rejected")
	}
	if err := svc.SaveTarget(ctx, domain.TargetPrice{SKU: "A", Floor: 20, Target: 15}, "op-1"); err == nil {
		t.Error("floor above target must be rejected")
	}
	if err := svc.SaveTarget(ctx, domain.TargetPrice{SKU: "A", Floor: 10, Target: 15, Ceiling: 12}, "op-1"); err == nil {
		t.Error("target above ceiling must be rejected")
	}

	if err := svc.SaveTarget(ctx, domain.TargetPrice{SKU: "A", Floor: 10, Target: 15, Ceiling: 20}, "op-1"); err != nil {
		t.Fatalf("valid corridor rejected: %v", err)
	}
	if got := repo.targets["A"]; got.UpdatedBy != "op-1" {
		t.Errorf("UpdatedBy = %q, want op-1", got.UpdatedBy)
	}
	if len(trail.events) != 1 || trail.events[0].Action != "pricing.target_save" {
		t.Errorf("expected one pricing.target_save audit event, got %+v", trail.events)
	}
}

func TestCreateRuleSurvivesSignalFailure(t *testing.T) {
	repo := &fakePricingRepo{}
	trail := &fakeTrail{}
	// Redis по мертвому адресу: правило должно сохраниться, publish — только warning
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	svc := NewPricingService(repo, rdb, trail, zap.NewNop())

	rule := &domain.GuardRule{SKU: "A", Conditions: json.RawMessage(`{"max_drop_pct": 10}`)}
	if err := svc.CreateRule(context.Background(), rule, "op-1"); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if len(repo.rules) != 1 {
		t.Fatalf("rule not persisted: %+v", repo.rules)
	}
	if rule.ID == "" {
		t.Error("rule ID not generated")
	}
	if len(trail.events) != 1 || trail.events[0].Action != "pricing.rule_create" {
		t.Errorf("expected one pricing.rule_create audit event, got %+v", trail.events)
	}
}
