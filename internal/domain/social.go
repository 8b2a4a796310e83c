package domain

import "time"

type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostScheduled PostStatus = "SCHEDULED"
	PostPublished PostStatus = "PUBLISHED"
	PostFailed    PostStatus = "FAILED"
)

// SocialPost — пост для вкладки Social Media
type SocialPost struct {
	ID       string     `json:"id"`
	Caption  string     `json:"caption"`
	MediaURL string     `json:"media_url"`
	Hashtags []string   `json:"hashtags"`
	Status   PostStatus `json:"status"`

	StrategyID  string     `json:"strategy_id,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Permalink   string     `json:"permalink,omitempty"` // Заполняет instagram-publish
	FailReason  string     `json:"fail_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SocialStrategy — контентная стратегия, по которой генератор пишет тексты
type SocialStrategy struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Tone       string   `json:"tone"`  // "educational", "promo", "ugc"
	Topics     []string `json:"topics"`
	PostsPerWk int      `json:"posts_per_week"`
	Active     bool     `json:"active"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AgentDecision — запись журнала решений AI-агента (что сгенерировал, что выбрал оператор)
type AgentDecision struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id,omitempty"`
	Action    string    `json:"action"` // "generate_caption", "pick_variant", "schedule"
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Model     string    `json:"model"` // Какая модель генерировала
	CreatedAt time.Time `json:"created_at"`
}

// CaptionRequest — запрос синхронной генерации текста
type CaptionRequest struct {
	ProductSKU string `json:"product_sku"`
	StrategyID string `json:"strategy_id"`
	Brief      string `json:"brief"`
}

// CaptionVariants — ответ генератора: несколько вариантов на выбор оператору
type CaptionVariants struct {
	Variants []string `json:"variants"`
	Model    string   `json:"model"`
}
