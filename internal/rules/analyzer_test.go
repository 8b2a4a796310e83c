package rules

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

type staticRules struct {
	rules []domain.GuardRule
}

func (s *staticRules) GetAllRules(_ context.Context) ([]domain.GuardRule, error) {
	return s.rules, nil
}

func newAnalyzer(t *testing.T, rules ...domain.GuardRule) *Analyzer {
	t.Helper()
	memo := NewMemo(&staticRules{rules: rules}, zap.NewNop())
	if err := memo.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return NewAnalyzer(memo, zap.NewNop())
}

func TestVerdictFloor(t *testing.T) {
	a := newAnalyzer(t)
	item := domain.PriceItem{SKU: "MS-001", Price: 30}
	target := &domain.TargetPrice{SKU: "MS-001", Floor: 25, Ceiling: 40}

	if held, _ := a.Verdict(item, 26, target); held {
		t.Error("26 is inside the corridor, must auto-apply")
	}
	if held, reason := a.Verdict(item, 20, target); !held {
		t.Error("20 is below floor, must hold")
	} else if reason == "" {
		t.Error("hold must carry a reason")
	}
	if held, _ := a.Verdict(item, 45, target); !held {
		t.Error("45 is above ceiling, must hold")
	}
}

func TestVerdictDropLimit(t *testing.T) {
	cond, _ := json.Marshal(map[string]interface{}{"max_drop_pct": 15.0})
	a := newAnalyzer(t, domain.GuardRule{ID: "r1", SKU: "*", Conditions: cond})

	item := domain.PriceItem{SKU: "MS-002", Price: 100}

	// -10% в пределах лимита
	if held, _ := a.Verdict(item, 90, nil); held {
		t.Error("10%% drop within limit, must auto-apply")
	}
	// -20% превышает лимит
	if held, _ := a.Verdict(item, 80, nil); !held {
		t.Error("20%% drop exceeds limit, must hold")
	}
}

func TestVerdictBreakeven(t *testing.T) {
	cond, _ := json.Marshal(map[string]interface{}{"respect_breakeven": true})
	a := newAnalyzer(t, domain.GuardRule{ID: "r1", SKU: "MS-003", Conditions: cond})

	item := domain.PriceItem{SKU: "MS-003", Price: 30, Breakeven: 22}
	if held, _ := a.Verdict(item, 20, nil); !held {
		t.Error("price below breakeven must hold")
	}
	if held, _ := a.Verdict(item, 25, nil); held {
		t.Error("price above breakeven must pass")
	}
}

func TestVerdictSpecificRuleWins(t *testing.T) {
	strict, _ := json.Marshal(map[string]interface{}{"max_drop_pct": 5.0})
	loose, _ := json.Marshal(map[string]interface{}{"max_drop_pct": 50.0})
	a := newAnalyzer(t,
		domain.GuardRule{ID: "wild", SKU: "*", Conditions: strict},
		domain.GuardRule{ID: "spec", SKU: "MS-004", Conditions: loose},
	)

	item := domain.PriceItem{SKU: "MS-004", Price: 100}
	// Персональное правило разрешает до -50%
	if held, _ := a.Verdict(item, 70, nil); held {
		t.Error("specific rule must override wildcard")
	}

	other := domain.PriceItem{SKU: "MS-999", Price: 100}
	if held, _ := a.Verdict(other, 70, nil); !held {
		t.Error("wildcard rule must hold 30%% drop")
	}
}

func TestVerdictMalformedConditions(t *testing.T) {
	a := newAnalyzer(t, domain.GuardRule{ID: "bad", SKU: "*", Conditions: json.RawMessage(`{broken`)})

	item := domain.PriceItem{SKU: "MS-005", Price: 10}
	if held, _ := a.Verdict(item, 9, nil); !held {
		t.Error("malformed rule must hold the change for a human")
	}
}

func TestBucket(t *testing.T) {
	cases := []struct {
		name    string
		price   float64
		compAvg float64
		want    domain.PriceBucket
	}{
		{"no data", 20, 0, ""},
		{"overpriced", 25, 20, domain.BucketOverpriced},
		{"underpriced", 15, 20, domain.BucketUnderpriced},
		{"competitive", 20.5, 20, domain.BucketCompetitive},
		{"edge high inside", 21, 20, domain.BucketCompetitive},
		{"edge low inside", 19, 20, domain.BucketCompetitive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Bucket(tc.price, tc.compAvg); got != tc.want {
				t.Fatalf("Bucket(%v, %v) = %q, want %q", tc.price, tc.compAvg, got, tc.want)
			}
		})
	}
}
