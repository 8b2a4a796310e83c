package domain

import (
	"errors"
	"time"
)

// Статусы сверки Korealy <-> Shopify
type ReconStatus string

const (
	ReconMatched        ReconStatus = "MATCHED"
	ReconMismatch       ReconStatus = "MISMATCH"        // Заказ найден, суммы разошлись
	ReconMissingShopify ReconStatus = "MISSING_SHOPIFY" // Есть у Korealy, нет у нас
	ReconMissingKorealy ReconStatus = "MISSING_KOREALY" // Есть у нас, нет в выписке
)

var ErrAlreadyResolved = errors.New("reconciliation record already resolved")

// ReconRecord — строка таблицы сверки: заказ из выписки Korealy против нашего заказа
type ReconRecord struct {
	ID          string      `json:"id"`
	RunID       string      `json:"run_id"` // Задача, породившая запись
	OrderNumber string      `json:"order_number"`
	Status      ReconStatus `json:"status"`

	KorealyAmount float64 `json:"korealy_amount"`
	ShopifyAmount float64 `json:"shopify_amount"`
	Delta         float64 `json:"delta"` // korealy - shopify

	Resolved   bool       `json:"resolved"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	Note       *string    `json:"note,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ReconSummary — шапка вкладки Korealy
type ReconSummary struct {
	Matched        int     `json:"matched"`
	Mismatch       int     `json:"mismatch"`
	MissingShopify int     `json:"missing_shopify"`
	MissingKorealy int     `json:"missing_korealy"`
	Unresolved     int     `json:"unresolved"`
	MismatchTotal  float64 `json:"mismatch_total"` // Суммарное расхождение в USD
}

// SettlementRow — строка выписки Korealy (приходит от внешнего API)
type SettlementRow struct {
	OrderNumber string    `json:"order_number"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	SettledAt   time.Time `json:"settled_at"`
}

// OrderRef — локальный заказ для матчинга (минимальный срез из Shopify-синка)
type OrderRef struct {
	OrderNumber string    `json:"order_number"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}
