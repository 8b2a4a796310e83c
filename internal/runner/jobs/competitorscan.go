package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/rules"
	"github.com/miraiskin/platform/internal/runner"
	"github.com/miraiskin/platform/internal/upstream"
	"go.uber.org/zap"
)

// CompetitorSource — движок цен: запускает скан и отдает найденные цены конкурентов
type CompetitorSource interface {
	ScanCompetitors(ctx context.Context) ([]upstream.CompetitorHit, error)
}

type CompetitorScanStore interface {
	InsertCompetitorQuotes(ctx context.Context, quotes []domain.CompetitorQuote) error
	ListPriceItems(ctx context.Context, search string, bucket domain.PriceBucket) ([]domain.PriceItem, error)
	UpsertPriceItem(ctx context.Context, it domain.PriceItem) error
}

// CompetitorScan забирает свежие цены конкурентов, сохраняет котировки
// и пересчитывает comp_avg и бакеты по каталогу.
type CompetitorScan struct {
	store  CompetitorScanStore
	engine CompetitorSource
	logger *zap.Logger
}

func NewCompetitorScan(store CompetitorScanStore, engine CompetitorSource, logger *zap.Logger) *CompetitorScan {
	return &CompetitorScan{
		store:  store,
		engine: engine,
		logger: logger.Named("competitor-scan"),
	}
}

func (j *CompetitorScan) Kind() domain.TaskKind { return domain.TaskCompetitorScan }

type competitorScanResult struct {
	Hits    int `json:"hits"`
	SKUs    int `json:"skus"`    // По скольким позициям пересчитан comp_avg
	Outlier int `json:"outlier"` // Отброшено аномальных цен
}

func (j *CompetitorScan) Run(ctx context.Context, task *domain.Task, progress runner.ProgressFunc) (json.RawMessage, error) {
	hits, err := j.engine.ScanCompetitors(ctx)
	if err != nil {
		return nil, fmt.Errorf("competitor scan: %w", err)
	}
	progress(30)

	res := competitorScanResult{Hits: len(hits)}

	quotes := make([]domain.CompetitorQuote, 0, len(hits))
	// Аутлаеры сохраняем для истории, но в среднее не пускаем
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, h := range hits {
		quotes = append(quotes, domain.CompetitorQuote{
			ID:      uuid.New().String(),
			SKU:     h.SKU,
			Vendor:  h.Vendor,
			Price:   h.Price,
			URL:     h.URL,
			SeenAt:  h.SeenAt,
			Outlier: h.Outlier,
		})
		if h.Outlier {
			res.Outlier++
			continue
		}
		sums[h.SKU] += h.Price
		counts[h.SKU]++
	}

	if err := j.store.InsertCompetitorQuotes(ctx, quotes); err != nil {
		return nil, fmt.Errorf("insert quotes: %w", err)
	}
	progress(60)

	items, err := j.store.ListPriceItems(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	for _, it := range items {
		n, ok := counts[it.SKU]
		if !ok || n == 0 {
			continue
		}
		it.CompAvg = sums[it.SKU] / float64(n)
		it.Bucket = rules.Bucket(it.Price, it.CompAvg)
		if err := j.store.UpsertPriceItem(ctx, it); err != nil {
			return nil, fmt.Errorf("refresh item %s: %w", it.SKU, err)
		}
		res.SKUs++
	}
	progress(95)

	j.logger.Info("competitor scan done",
		zap.Int("hits", res.Hits),
		zap.Int("skus", res.SKUs),
		zap.Int("outliers", res.Outlier))

	return json.Marshal(res)
}
