package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// PriceBucket — результат сравнения нашей цены со средней по конкурентам
type PriceBucket string

const (
	BucketOverpriced  PriceBucket = "OVERPRICED"  // Дороже рынка
	BucketUnderpriced PriceBucket = "UNDERPRICED" // Дешевле рынка (теряем маржу)
	BucketCompetitive PriceBucket = "COMPETITIVE" // В рыночном коридоре
)

// PriceItem — позиция каталога со всеми расчетными полями для таблицы Pricing.
// Расчетные поля (breakeven, comp_avg, priority) заполняет price-sync джоба.
type PriceItem struct {
	SKU       string  `json:"sku"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`     // Текущая цена в магазине (USD)
	Cost      float64 `json:"cost"`      // Себестоимость с доставкой
	Breakeven float64 `json:"breakeven"` // Точка безубыточности
	CompAvg   float64 `json:"comp_avg"`  // Средняя цена конкурентов
	Priority  int     `json:"priority"`  // Насколько срочно пересматривать цену
	Stock     int     `json:"stock"`

	Bucket    PriceBucket `json:"bucket"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TargetPrice — коридор цен, заданный оператором для SKU
type TargetPrice struct {
	SKU     string  `json:"sku"`
	Floor   float64 `json:"floor"`   // Ниже не опускаемся даже под давлением рынка
	Target  float64 `json:"target"`  // Желаемая цена
	Ceiling float64 `json:"ceiling"` // Потолок

	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompetitorQuote — одна найденная цена конкурента (пишет competitor-scan)
type CompetitorQuote struct {
	ID      string    `json:"id"`
	SKU     string    `json:"sku"`
	Vendor  string    `json:"vendor"`
	Price   float64   `json:"price"`
	URL     string    `json:"url"`
	SeenAt  time.Time `json:"seen_at"`
	Outlier bool      `json:"outlier"` // Отфильтрована аномальной движком цен
}

// Статусы staging-таблицы Price Updates
type PriceUpdateStatus string

const (
	PriceUpdatePending  PriceUpdateStatus = "PENDING"  // Ждет решения оператора
	PriceUpdateApproved PriceUpdateStatus = "APPROVED" // Одобрена, но еще не применена
	PriceUpdateRejected PriceUpdateStatus = "REJECTED"
	PriceUpdateApplied  PriceUpdateStatus = "APPLIED" // Цена ушла в магазин
)

var (
	ErrUpdateAlreadyDecided = errors.New("price update already decided")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

// PriceUpdate — строка staging-таблицы: предложенное изменение цены.
// Guard-правила решают, применять автоматически или держать в PENDING.
type PriceUpdate struct {
	ID            string            `json:"id"`
	TaskID        string            `json:"task_id"` // Джоба, которая предложила изменение
	SKU           string            `json:"sku"`
	CurrentPrice  float64           `json:"current_price"`
	ProposedPrice float64           `json:"proposed_price"`
	Reason        string            `json:"reason"`        // Почему двигаем цену (от движка)
	GuardVerdict  string            `json:"guard_verdict"` // Какое правило задержало изменение
	Status        PriceUpdateStatus `json:"status"`

	ReviewerID *string `json:"reviewer_id,omitempty"`
	Comment    *string `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanTransitionTo проверяет правила конечного автомата staging-строки
func (p *PriceUpdate) CanTransitionTo(next PriceUpdateStatus) error {
	switch p.Status {
	case PriceUpdatePending:
		if next == PriceUpdatePending {
			return ErrInvalidTransition
		}
		return nil
	case PriceUpdateApproved:
		// Одобренную строку можно только применить
		if next == PriceUpdateApplied {
			return nil
		}
		return ErrUpdateAlreadyDecided
	default:
		return ErrUpdateAlreadyDecided
	}
}

// GuardRule — ограничение на автоматическое изменение цены.
// SKU == "*" действует на весь каталог.
type GuardRule struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`

	// Условия в JSON: {"max_drop_pct": 15, "respect_floor": true}
	Conditions json.RawMessage `json:"conditions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceAnalysis — отдача /api/pricing/analysis: агрегаты по бакетам
type PriceAnalysis struct {
	Overpriced  []PriceItem `json:"overpriced"`
	Underpriced []PriceItem `json:"underpriced"`
	Competitive []PriceItem `json:"competitive"`
	Unscanned   int         `json:"unscanned"` // SKU без данных конкурентов
}
