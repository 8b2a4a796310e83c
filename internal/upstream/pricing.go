package upstream

import (
	"context"
	"net/http"
	"time"
)

// PriceProposal — строка ответа движка цен: свежие расчетные поля
// по позиции и предложенная цена.
type PriceProposal struct {
	SKU           string  `json:"sku"`
	Title         string  `json:"title"`
	Cost          float64 `json:"cost"`
	Breakeven     float64 `json:"breakeven_US"`
	CompAvg       float64 `json:"comp_avg_US"`
	Priority      int     `json:"priority_US"`
	Stock         int     `json:"stock"`
	CurrentPrice  float64 `json:"current_price"`
	ProposedPrice float64 `json:"proposed_price"`
	Reason        string  `json:"reason"`
}

// CompetitorHit — одна найденная конкурентная цена
type CompetitorHit struct {
	SKU     string    `json:"sku"`
	Vendor  string    `json:"vendor"`
	Price   float64   `json:"price"`
	URL     string    `json:"url"`
	Outlier bool      `json:"outlier"`
	SeenAt  time.Time `json:"seen_at"`
}

// PricingEngine — клиент внешнего движка цен.
// Сами расчеты (аутлаеры, breakeven, приоритеты) живут там, мы только забираем результат.
type PricingEngine struct {
	c *Client
}

func NewPricingEngine(c *Client) *PricingEngine {
	return &PricingEngine{c: c}
}

// FetchProposals забирает пересчитанные цены по всему каталогу
func (p *PricingEngine) FetchProposals(ctx context.Context) ([]PriceProposal, error) {
	var out struct {
		Items []PriceProposal `json:"items"`
	}
	if err := p.c.call(ctx, "pricing.proposals", http.MethodGet, "/v1/proposals", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ScanCompetitors запускает скан и забирает найденные цены
func (p *PricingEngine) ScanCompetitors(ctx context.Context) ([]CompetitorHit, error) {
	var out struct {
		Hits []CompetitorHit `json:"hits"`
	}
	if err := p.c.call(ctx, "pricing.scan", http.MethodPost, "/v1/competitor-scan", nil, &out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}
