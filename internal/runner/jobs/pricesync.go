package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/miraiskin/platform/internal/rules"
	"github.com/miraiskin/platform/internal/runner"
	"github.com/miraiskin/platform/internal/upstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProposalSource — движок цен: отдает пересчитанные предложения по каталогу
type ProposalSource interface {
	FetchProposals(ctx context.Context) ([]upstream.PriceProposal, error)
}

// PriceSyncStore описывает требования джобы к хранилищу
type PriceSyncStore interface {
	UpsertPriceItem(ctx context.Context, it domain.PriceItem) error
	GetTargetPrice(ctx context.Context, sku string) (*domain.TargetPrice, error)
	SetItemPrice(ctx context.Context, sku string, price float64) error
	StagePriceUpdate(ctx context.Context, u *domain.PriceUpdate) error
	MarkUpdateApplied(ctx context.Context, id string) error
	CountPendingByTask(ctx context.Context, taskID string) (int, error)
}

// PriceSync тянет предложения из движка цен, обновляет расчетные поля каталога
// и стейджит изменения цен. Что прошло guard-правила — применяется сразу,
// остальное висит PENDING до решения оператора (ждем ограниченное время).
type PriceSync struct {
	store    PriceSyncStore
	engine   ProposalSource
	analyzer *rules.Analyzer
	rdb      *redis.Client
	wait     time.Duration // Сколько ждем решений оператора по held-строкам
	logger   *zap.Logger
}

func NewPriceSync(store PriceSyncStore, engine ProposalSource, analyzer *rules.Analyzer, rdb *redis.Client, wait time.Duration, logger *zap.Logger) *PriceSync {
	return &PriceSync{
		store:    store,
		engine:   engine,
		analyzer: analyzer,
		rdb:      rdb,
		wait:     wait,
		logger:   logger.Named("price-sync"),
	}
}

func (j *PriceSync) Kind() domain.TaskKind { return domain.TaskPriceSync }

type priceSyncResult struct {
	Proposals int  `json:"proposals"`
	Applied   int  `json:"applied"`
	Held      int  `json:"held"`
	Decided   int  `json:"decided"`   // Сколько held-строк оператор успел решить
	TimedOut  bool `json:"timed_out"` // Остались нерешенные после окна ожидания
}

func (j *PriceSync) Run(ctx context.Context, task *domain.Task, progress runner.ProgressFunc) (json.RawMessage, error) {
	proposals, err := j.engine.FetchProposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch proposals: %w", err)
	}
	progress(10)

	res := priceSyncResult{Proposals: len(proposals)}

	for i, p := range proposals {
		item := domain.PriceItem{
			SKU:       p.SKU,
			Title:     p.Title,
			Price:     p.CurrentPrice,
			Cost:      p.Cost,
			Breakeven: p.Breakeven,
			CompAvg:   p.CompAvg,
			Priority:  p.Priority,
			Stock:     p.Stock,
			Bucket:    rules.Bucket(p.CurrentPrice, p.CompAvg),
		}
		if err := j.store.UpsertPriceItem(ctx, item); err != nil {
			return nil, fmt.Errorf("upsert item %s: %w", p.SKU, err)
		}

		if p.ProposedPrice <= 0 || p.ProposedPrice == p.CurrentPrice {
			continue
		}

		target, err := j.store.GetTargetPrice(ctx, p.SKU)
		if err != nil {
			return nil, fmt.Errorf("target for %s: %w", p.SKU, err)
		}

		held, verdict := j.analyzer.Verdict(item, p.ProposedPrice, target)

		u := &domain.PriceUpdate{
			ID:            uuid.New().String(),
			TaskID:        task.ID,
			SKU:           p.SKU,
			CurrentPrice:  p.CurrentPrice,
			ProposedPrice: p.ProposedPrice,
			Reason:        p.Reason,
		}

		if held {
			u.Status = domain.PriceUpdatePending
			u.GuardVerdict = verdict
			if err := j.store.StagePriceUpdate(ctx, u); err != nil {
				return nil, fmt.Errorf("stage update %s: %w", p.SKU, err)
			}
			res.Held++
			j.logger.Info("price change held for review",
				zap.String("sku", p.SKU),
				zap.Float64("proposed", p.ProposedPrice),
				zap.String("verdict", verdict))
			continue
		}

		// Правила пропустили — применяем сразу
		u.Status = domain.PriceUpdateApproved
		if err := j.store.StagePriceUpdate(ctx, u); err != nil {
			return nil, fmt.Errorf("stage update %s: %w", p.SKU, err)
		}
		if err := j.store.SetItemPrice(ctx, p.SKU, p.ProposedPrice); err != nil {
			return nil, fmt.Errorf("apply price %s: %w", p.SKU, err)
		}
		if err := j.store.MarkUpdateApplied(ctx, u.ID); err != nil {
			j.logger.Warn("price applied but staging row not marked", zap.String("id", u.ID), zap.Error(err))
		}
		res.Applied++

		// Первые 80% прогресса — обработка предложений
		progress(10 + (i+1)*70/len(proposals))
	}

	// Ждем решений оператора: задача остается RUNNING и фронт видит живой прогресс
	if res.Held > 0 {
		decided, timedOut := j.waitDecisions(ctx, task.ID, progress)
		res.Decided = decided
		res.TimedOut = timedOut
	}

	out, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// waitDecisions слушает per-task канал решений и периодически перепроверяет
// счетчик PENDING в базе (сигнал мог потеряться). Окно ожидания ограничено:
// если оператор так и не решил, задача завершается со сводкой по held-строкам.
func (j *PriceSync) waitDecisions(ctx context.Context, taskID string, progress runner.ProgressFunc) (decided int, timedOut bool) {
	pubsub := j.rdb.Subscribe(ctx, infra.DecisionChannel(taskID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	deadline := time.NewTimer(j.wait)
	defer deadline.Stop()
	recheck := time.NewTicker(15 * time.Second)
	defer recheck.Stop()

	pending, err := j.store.CountPendingByTask(ctx, taskID)
	if err != nil || pending == 0 {
		return 0, false
	}
	initial := pending
	progress(80)

	for {
		select {
		case <-ctx.Done():
			return initial - pending, true
		case <-deadline.C:
			j.logger.Warn("decision window elapsed with pending updates",
				zap.String("task_id", taskID), zap.Int("pending", pending))
			return initial - pending, true
		case <-ch:
		case <-recheck.C:
		}

		pending, err = j.store.CountPendingByTask(ctx, taskID)
		if err != nil {
			j.logger.Warn("pending recount failed", zap.Error(err))
			continue
		}
		progress(80 + (initial-pending)*20/initial)
		if pending == 0 {
			return initial, false
		}
	}
}
