package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/rules"
	"github.com/miraiskin/platform/internal/upstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type staticRuleRepo struct {
	rules []domain.GuardRule
}

func (s *staticRuleRepo) GetAllRules(_ context.Context) ([]domain.GuardRule, error) {
	return s.rules, nil
}

type fakePriceSyncStore struct {
	items   map[string]domain.PriceItem
	prices  map[string]float64
	staged  []*domain.PriceUpdate
	applied []string
}

func newFakePriceSyncStore() *fakePriceSyncStore {
	return &fakePriceSyncStore{
		items:  make(map[string]domain.PriceItem),
		prices: make(map[string]float64),
	}
}

func (f *fakePriceSyncStore) UpsertPriceItem(_ context.Context, it domain.PriceItem) error {
	f.items[it.SKU] = it
	return nil
}

func (f *fakePriceSyncStore) GetTargetPrice(_ context.Context, _ string) (*domain.TargetPrice, error) {
	return nil, nil
}

func (f *fakePriceSyncStore) SetItemPrice(_ context.Context, sku string, price float64) error {
	f.prices[sku] = price
	return nil
}

func (f *fakePriceSyncStore) StagePriceUpdate(_ context.Context, u *domain.PriceUpdate) error {
	f.staged = append(f.staged, u)
	return nil
}

func (f *fakePriceSyncStore) MarkUpdateApplied(_ context.Context, id string) error {
	f.applied = append(f.applied, id)
	return nil
}

func (f *fakePriceSyncStore) CountPendingByTask(_ context.Context, taskID string) (int, error) {
	n := 0
	for _, u := range f.staged {
		if u.TaskID == taskID && u.Status == domain.PriceUpdatePending {
			n++
		}
	}
	return n, nil
}

type staticProposals struct {
	list []upstream.PriceProposal
}

func (s *staticProposals) FetchProposals(_ context.Context) ([]upstream.PriceProposal, error) {
	return s.list, nil
}

func newTestAnalyzer(t *testing.T) *rules.Analyzer {
	t.Helper()
	memo := rules.NewMemo(&staticRuleRepo{rules: []domain.GuardRule{
		{ID: "r1", SKU: "*", Conditions: json.RawMessage(`{"max_drop_pct": 15}`)},
	}}, zap.NewNop())
	if err := memo.Refresh(context.Background()); err != nil {
		t.Fatalf("memo refresh: %v", err)
	}
	return rules.NewAnalyzer(memo, zap.NewNop())
}

func TestPriceSyncAppliesAndHolds(t *testing.T) {
	store := newFakePriceSyncStore()
	engine := &staticProposals{list: []upstream.PriceProposal{
		// Небольшое повышение — правила пропускают
		{SKU: "A", CurrentPrice: 10, ProposedPrice: 11, CompAvg: 11, Reason: "below market"},
		// Падение на 40% при лимите 15% — держим до оператора
		{SKU: "B", CurrentPrice: 50, ProposedPrice: 30, CompAvg: 31, Reason: "competitor undercut"},
		// Без изменения цены — только обновление расчетных полей
		{SKU: "C", CurrentPrice: 20, ProposedPrice: 20, CompAvg: 20.2},
	}}

	// Redis в тесте недоступен: ждать решений бессмысленно, окно сразу истечет
	dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	job := NewPriceSync(store, engine, newTestAnalyzer(t), dead, 100*time.Millisecond, zap.NewNop())

	raw, err := job.Run(context.Background(), &domain.Task{ID: "task-1"}, func(int) {})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var res struct {
		Proposals int  `json:"proposals"`
		Applied   int  `json:"applied"`
		Held      int  `json:"held"`
		TimedOut  bool `json:"timed_out"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if res.Proposals != 3 || res.Applied != 1 || res.Held != 1 {
		t.Errorf("result = %+v", res)
	}
	if !res.TimedOut {
		t.Error("expected timed_out with an undecided held update")
	}

	if store.prices["A"] != 11 {
		t.Errorf("price A = %v, want 11 applied", store.prices["A"])
	}
	if _, ok := store.prices["B"]; ok {
		t.Error("held price B must not be applied")
	}

	if len(store.staged) != 2 {
		t.Fatalf("staged %d updates, want 2", len(store.staged))
	}
	for _, u := range store.staged {
		switch u.SKU {
		case "A":
			if u.Status != domain.PriceUpdateApproved {
				t.Errorf("A staged as %s, want APPROVED", u.Status)
			}
		case "B":
			if u.Status != domain.PriceUpdatePending || u.GuardVerdict == "" {
				t.Errorf("B staged as %s verdict %q", u.Status, u.GuardVerdict)
			}
		}
	}

	if len(store.applied) != 1 {
		t.Errorf("MarkUpdateApplied called %d times, want 1", len(store.applied))
	}

	// Все три позиции получили пересчитанные поля и бакеты
	if len(store.items) != 3 {
		t.Errorf("upserted %d items, want 3", len(store.items))
	}
	if store.items["A"].Bucket != domain.BucketUnderpriced {
		t.Errorf("A bucket = %s, want UNDERPRICED", store.items["A"].Bucket)
	}
}
