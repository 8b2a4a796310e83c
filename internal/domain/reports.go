package domain

import "time"

// OverviewReport — единый дашборд вкладки Reports.
// Собирается одним проходом по базе и кэшируется в Redis.
type OverviewReport struct {
	Fulfillment FulfillmentStats `json:"fulfillment"` // Отправления
	Pricing     PricingStats     `json:"pricing"`     // Цены и staging
	Recon       ReconStats       `json:"recon"`       // Сверка Korealy
	Jobs        JobStats         `json:"jobs"`        // Фоновые задачи
}

type FulfillmentStats struct {
	ActiveShipments int `json:"active_shipments"`
	Delayed         int `json:"delayed"`
	Exceptions      int `json:"exceptions"`
}

type PricingStats struct {
	PendingUpdates int `json:"pending_updates"` // Ждут решения оператора
	Overpriced     int `json:"overpriced"`
	Underpriced    int `json:"underpriced"`
}

type ReconStats struct {
	UnresolvedMismatches int     `json:"unresolved_mismatches"`
	MismatchTotal        float64 `json:"mismatch_total"`
}

type JobStats struct {
	LastHour      int64   `json:"last_hour"` // Завершенных задач за час
	Failed        int64   `json:"failed"`
	P95DurationMs float64 `json:"p95_duration_ms"`
	PerMinute     float64 `json:"per_minute"`
}

// SalesPoint — одна строка отчета по продажам
type SalesPoint struct {
	Date    time.Time `json:"date"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
	AOV     float64   `json:"aov"` // Средний чек
}
