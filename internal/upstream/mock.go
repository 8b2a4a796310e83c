package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/miraiskin/platform/internal/domain"
)

// Mock — заглушка всех внешних коллабораторов для локального стенда и тестов.
// Отдает детерминированные данные, никакой сети.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) FetchProposals(_ context.Context) ([]PriceProposal, error) {
	return []PriceProposal{
		{
			SKU: "MS-SERUM-30", Title: "Vitamin C Serum 30ml",
			Cost: 6.40, Breakeven: 11.20, CompAvg: 24.10, Priority: 2, Stock: 140,
			CurrentPrice: 27.90, ProposedPrice: 25.50, Reason: "above market corridor",
		},
		{
			SKU: "MS-CREAM-50", Title: "Snail Mucin Cream 50ml",
			Cost: 4.10, Breakeven: 8.70, CompAvg: 18.30, Priority: 1, Stock: 12,
			CurrentPrice: 17.90, ProposedPrice: 17.90, Reason: "",
		},
	}, nil
}

func (m *Mock) ScanCompetitors(_ context.Context) ([]CompetitorHit, error) {
	now := time.Now().UTC()
	return []CompetitorHit{
		{SKU: "MS-SERUM-30", Vendor: "yesstyle", Price: 23.80, SeenAt: now},
		{SKU: "MS-SERUM-30", Vendor: "stylevana", Price: 24.40, SeenAt: now},
		{SKU: "MS-SERUM-30", Vendor: "dropship-bot", Price: 4.99, Outlier: true, SeenAt: now},
	}, nil
}

func (m *Mock) Track(_ context.Context, carrier, trackingNumber string) (*TrackingUpdate, error) {
	occurred := time.Now().UTC().Add(-36 * time.Hour)
	return &TrackingUpdate{
		Status: "in_transit",
		Events: []TrackingEvent{
			{
				ID:         fmt.Sprintf("%s-%s-1", carrier, trackingNumber),
				Location:   "Incheon, KR",
				Message:    "Departed origin facility",
				OccurredAt: occurred,
			},
		},
	}, nil
}

func (m *Mock) Publish(_ context.Context, _, _ string, _ []string) (*PublishResponse, error) {
	return &PublishResponse{
		MediaID:   "17900000000000001",
		Permalink: "https://www.instagram.com/p/MOCK0001/",
	}, nil
}

func (m *Mock) Captions(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return &GenerateResponse{
		Variants: []string{
			fmt.Sprintf("Glass skin starts here: %s.", req.ProductSKU),
			fmt.Sprintf("Your routine is missing %s — here is why.", req.ProductSKU),
			fmt.Sprintf("POV: you finally tried %s.", req.ProductSKU),
		},
		Model: "mock-writer-1",
	}, nil
}

func (m *Mock) FetchSettlement(_ context.Context, _ int) ([]domain.SettlementRow, error) {
	settled := time.Date(2026, 8, 14, 3, 0, 0, 0, time.UTC)
	return []domain.SettlementRow{
		{OrderNumber: "MS-1001", Amount: 49.90, Currency: "USD", SettledAt: settled},
		{OrderNumber: "MS-1002", Amount: 31.40, Currency: "USD", SettledAt: settled},
		{OrderNumber: "KR-ADJ-77", Amount: 88.00, Currency: "USD", SettledAt: settled},
	}, nil
}
