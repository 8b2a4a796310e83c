package audit

import "time"

// Event — одна запись журнала действий.
// Пишут и консоль (действия оператора), и раннер (переходы джоб).
type Event struct {
	ID       string                 `json:"id"`     // UUID события
	Actor    string                 `json:"actor"`  // ID оператора или "runner"
	Action   string                 `json:"action"` // "pricing.decide", "task.enqueue", "korealy.resolve"...
	Entity   string                 `json:"entity"` // "price_update", "task", "recon_record"
	EntityID string                 `json:"entity_id"`
	Detail   map[string]interface{} `json:"detail,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
