package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/runner"
	"go.uber.org/zap"
)

// SettlementSource — API Korealy: строки выписки за окно сверки
type SettlementSource interface {
	FetchSettlement(ctx context.Context, days int) ([]domain.SettlementRow, error)
}

type ReconcileStore interface {
	ListOrderRefs(ctx context.Context, days int) ([]domain.OrderRef, error)
	InsertReconRecords(ctx context.Context, records []domain.ReconRecord) error
}

const (
	reconWindowDays = 30
	// Копеечные расхождения из-за округления валют не считаем mismatch
	amountTolerance = 0.01
	// Второй проход: заказ и строка выписки считаются одним заказом,
	// если суммы совпали и даты разошлись не больше чем на сутки
	matchDateWindow = 24 * time.Hour
)

// KorealyReconcile сверяет выписку Korealy с нашими заказами
type KorealyReconcile struct {
	store   ReconcileStore
	korealy SettlementSource
	logger  *zap.Logger
}

func NewKorealyReconcile(store ReconcileStore, korealy SettlementSource, logger *zap.Logger) *KorealyReconcile {
	return &KorealyReconcile{
		store:   store,
		korealy: korealy,
		logger:  logger.Named("korealy-reconcile"),
	}
}

func (j *KorealyReconcile) Kind() domain.TaskKind { return domain.TaskKorealyReconcile }

type reconcileResult struct {
	Rows           int `json:"rows"`
	Orders         int `json:"orders"`
	Matched        int `json:"matched"`
	Mismatch       int `json:"mismatch"`
	MissingShopify int `json:"missing_shopify"`
	MissingKorealy int `json:"missing_korealy"`
}

func (j *KorealyReconcile) Run(ctx context.Context, task *domain.Task, progress runner.ProgressFunc) (json.RawMessage, error) {
	rows, err := j.korealy.FetchSettlement(ctx, reconWindowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch settlement: %w", err)
	}
	progress(30)

	orders, err := j.store.ListOrderRefs(ctx, reconWindowDays)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	progress(50)

	records := MatchSettlement(task.ID, rows, orders)
	if err := j.store.InsertReconRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("insert recon records: %w", err)
	}
	progress(90)

	res := reconcileResult{Rows: len(rows), Orders: len(orders)}
	for _, r := range records {
		switch r.Status {
		case domain.ReconMatched:
			res.Matched++
		case domain.ReconMismatch:
			res.Mismatch++
		case domain.ReconMissingShopify:
			res.MissingShopify++
		case domain.ReconMissingKorealy:
			res.MissingKorealy++
		}
	}

	j.logger.Info("reconciliation finished",
		zap.String("run_id", task.ID),
		zap.Int("matched", res.Matched),
		zap.Int("mismatch", res.Mismatch),
		zap.Int("missing_shopify", res.MissingShopify),
		zap.Int("missing_korealy", res.MissingKorealy))

	return json.Marshal(res)
}

// MatchSettlement сопоставляет выписку с заказами в два прохода:
// сначала точное совпадение номера заказа, затем — сумма плюс окно по дате
// (Korealy иногда перебивает номера при ручных корректировках).
// Что не сошлось — MISSING_SHOPIFY / MISSING_KOREALY.
func MatchSettlement(runID string, rows []domain.SettlementRow, orders []domain.OrderRef) []domain.ReconRecord {
	records := make([]domain.ReconRecord, 0, len(rows)+len(orders))

	byNumber := make(map[string]int, len(orders)) // order_number -> index
	usedOrder := make([]bool, len(orders))
	for i, o := range orders {
		byNumber[o.OrderNumber] = i
	}

	unmatchedRows := make([]domain.SettlementRow, 0)

	// Проход 1: точный номер заказа
	for _, row := range rows {
		i, ok := byNumber[row.OrderNumber]
		if !ok || usedOrder[i] {
			unmatchedRows = append(unmatchedRows, row)
			continue
		}
		usedOrder[i] = true
		records = append(records, newRecord(runID, row.OrderNumber, row.Amount, orders[i].Amount))
	}

	// Проход 2: сумма + дата для строк с перебитыми номерами
	for _, row := range unmatchedRows {
		matched := false
		for i, o := range orders {
			if usedOrder[i] {
				continue
			}
			if math.Abs(o.Amount-row.Amount) <= amountTolerance &&
				absDuration(row.SettledAt.Sub(o.CreatedAt)) <= matchDateWindow {
				usedOrder[i] = true
				records = append(records, newRecord(runID, o.OrderNumber, row.Amount, o.Amount))
				matched = true
				break
			}
		}
		if !matched {
			// Korealy знает заказ, которого нет у нас
			records = append(records, domain.ReconRecord{
				ID:            uuid.New().String(),
				RunID:         runID,
				OrderNumber:   row.OrderNumber,
				Status:        domain.ReconMissingShopify,
				KorealyAmount: row.Amount,
				Delta:         row.Amount,
			})
		}
	}

	// Наши заказы, не попавшие в выписку
	for i, o := range orders {
		if usedOrder[i] {
			continue
		}
		records = append(records, domain.ReconRecord{
			ID:            uuid.New().String(),
			RunID:         runID,
			OrderNumber:   o.OrderNumber,
			Status:        domain.ReconMissingKorealy,
			ShopifyAmount: o.Amount,
			Delta:         -o.Amount,
		})
	}

	return records
}

func newRecord(runID, orderNumber string, korealy, shopify float64) domain.ReconRecord {
	status := domain.ReconMatched
	if math.Abs(korealy-shopify) > amountTolerance {
		status = domain.ReconMismatch
	}
	return domain.ReconRecord{
		ID:            uuid.New().String(),
		RunID:         runID,
		OrderNumber:   orderNumber,
		Status:        status,
		KorealyAmount: korealy,
		ShopifyAmount: shopify,
		Delta:         korealy - shopify,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
