package rules

import (
	"encoding/json"
	"fmt"

	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

// Analyzer решает, можно ли применять предложенную цену автоматически
// или staging-строка должна ждать решения оператора.
type Analyzer struct {
	memo   *Memo
	logger *zap.Logger
}

func NewAnalyzer(memo *Memo, logger *zap.Logger) *Analyzer {
	return &Analyzer{memo: memo, logger: logger.Named("analyzer")}
}

// conditions — структура условий правила из БД
type conditions struct {
	MaxDropPct       float64 `json:"max_drop_pct"`  // Максимальное снижение, %
	MaxRaisePct      float64 `json:"max_raise_pct"` // Максимальное повышение, %
	RespectFloor     bool    `json:"respect_floor"`
	RespectBreakeven bool    `json:"respect_breakeven"`
}

// Verdict проверяет предложение движка цен против правил и коридора оператора.
// Возвращает (true, причина), если изменение нужно держать до ручного одобрения.
func (a *Analyzer) Verdict(item domain.PriceItem, proposed float64, target *domain.TargetPrice) (bool, string) {
	rule, ok := a.memo.Get(item.SKU)

	var cond conditions
	if ok && len(rule.Conditions) > 0 {
		if err := json.Unmarshal(rule.Conditions, &cond); err != nil {
			// Битые условия — держим изменение, пусть смотрит человек
			a.logger.Error("failed to unmarshal rule conditions",
				zap.String("rule_id", rule.ID), zap.Error(err))
			return true, "malformed guard rule"
		}
	}

	// 1. Коридор оператора важнее всего
	if target != nil {
		if proposed < target.Floor {
			return true, fmt.Sprintf("below floor %.2f", target.Floor)
		}
		if target.Ceiling > 0 && proposed > target.Ceiling {
			return true, fmt.Sprintf("above ceiling %.2f", target.Ceiling)
		}
	}

	// 2. Безубыточность
	if cond.RespectBreakeven && item.Breakeven > 0 && proposed < item.Breakeven {
		return true, fmt.Sprintf("below breakeven %.2f", item.Breakeven)
	}

	// 3. Процентные лимиты изменения
	if item.Price > 0 {
		changePct := (proposed - item.Price) / item.Price * 100
		if cond.MaxDropPct > 0 && changePct < -cond.MaxDropPct {
			a.logger.Warn("price drop over limit",
				zap.String("sku", item.SKU),
				zap.Float64("change_pct", changePct),
				zap.Float64("limit", cond.MaxDropPct))
			return true, fmt.Sprintf("drop %.1f%% exceeds limit %.1f%%", -changePct, cond.MaxDropPct)
		}
		if cond.MaxRaisePct > 0 && changePct > cond.MaxRaisePct {
			return true, fmt.Sprintf("raise %.1f%% exceeds limit %.1f%%", changePct, cond.MaxRaisePct)
		}
	}

	return false, ""
}

// Bucket относит позицию к бакету конкурентного анализа.
// Коридор ±5% от средней по конкурентам считаем рыночным.
func Bucket(price, compAvg float64) domain.PriceBucket {
	if compAvg <= 0 {
		return ""
	}
	switch {
	case price > compAvg*1.05:
		return domain.BucketOverpriced
	case price < compAvg*0.95:
		return domain.BucketUnderpriced
	default:
		return domain.BucketCompetitive
	}
}
