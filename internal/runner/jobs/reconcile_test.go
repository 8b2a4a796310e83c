package jobs

import (
	"testing"
	"time"

	"github.com/miraiskin/platform/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2026, 8, n, 12, 0, 0, 0, time.UTC)
}

func findRecord(t *testing.T, records []domain.ReconRecord, orderNumber string) domain.ReconRecord {
	t.Helper()
	for _, r := range records {
		if r.OrderNumber == orderNumber {
			return r
		}
	}
	t.Fatalf("no record for order %s", orderNumber)
	return domain.ReconRecord{}
}

func TestMatchSettlementExactNumber(t *testing.T) {
	rows := []domain.SettlementRow{
		{OrderNumber: "MS-1001", Amount: 49.90, SettledAt: day(10)},
		{OrderNumber: "MS-1002", Amount: 30.00, SettledAt: day(10)},
	}
	orders := []domain.OrderRef{
		{OrderNumber: "MS-1001", Amount: 49.90, CreatedAt: day(9)},
		{OrderNumber: "MS-1002", Amount: 35.50, CreatedAt: day(9)},
	}

	records := MatchSettlement("run-1", rows, orders)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	ok := findRecord(t, records, "MS-1001")
	if ok.Status != domain.ReconMatched {
		t.Errorf("MS-1001 status = %s, want MATCHED", ok.Status)
	}

	bad := findRecord(t, records, "MS-1002")
	if bad.Status != domain.ReconMismatch {
		t.Errorf("MS-1002 status = %s, want MISMATCH", bad.Status)
	}
	if diff := bad.Delta - (-5.50); diff > 0.001 || diff < -0.001 {
		t.Errorf("MS-1002 delta = %.2f, want -5.50", bad.Delta)
	}
}

func TestMatchSettlementToleratesRounding(t *testing.T) {
	rows := []domain.SettlementRow{{OrderNumber: "MS-2001", Amount: 20.00, SettledAt: day(5)}}
	orders := []domain.OrderRef{{OrderNumber: "MS-2001", Amount: 20.01, CreatedAt: day(5)}}

	records := MatchSettlement("run-1", rows, orders)
	if records[0].Status != domain.ReconMatched {
		t.Errorf("penny difference must stay MATCHED, got %s", records[0].Status)
	}
}

func TestMatchSettlementAmountDateFallback(t *testing.T) {
	// Номер перебит на стороне Korealy, но сумма и дата сходятся
	rows := []domain.SettlementRow{{OrderNumber: "KR-X-77", Amount: 88.00, SettledAt: day(15)}}
	orders := []domain.OrderRef{{OrderNumber: "MS-3001", Amount: 88.00, CreatedAt: day(15).Add(-6 * time.Hour)}}

	records := MatchSettlement("run-1", rows, orders)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != domain.ReconMatched || records[0].OrderNumber != "MS-3001" {
		t.Errorf("fallback match failed: %+v", records[0])
	}
}

func TestMatchSettlementDateWindowBounds(t *testing.T) {
	// Та же сумма, но заказ старше суток — это разные заказы
	rows := []domain.SettlementRow{{OrderNumber: "KR-X-78", Amount: 88.00, SettledAt: day(15)}}
	orders := []domain.OrderRef{{OrderNumber: "MS-3002", Amount: 88.00, CreatedAt: day(15).Add(-30 * time.Hour)}}

	records := MatchSettlement("run-1", rows, orders)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if findRecord(t, records, "KR-X-78").Status != domain.ReconMissingShopify {
		t.Error("settlement row outside window must be MISSING_SHOPIFY")
	}
	if findRecord(t, records, "MS-3002").Status != domain.ReconMissingKorealy {
		t.Error("order outside window must be MISSING_KOREALY")
	}
}

func TestMatchSettlementMissingBothSides(t *testing.T) {
	rows := []domain.SettlementRow{{OrderNumber: "KR-9", Amount: 10, SettledAt: day(1)}}
	orders := []domain.OrderRef{{OrderNumber: "MS-9", Amount: 99, CreatedAt: day(20)}}

	records := MatchSettlement("run-1", rows, orders)

	miss := findRecord(t, records, "KR-9")
	if miss.Status != domain.ReconMissingShopify || miss.Delta != 10 {
		t.Errorf("KR-9: %+v", miss)
	}
	ours := findRecord(t, records, "MS-9")
	if ours.Status != domain.ReconMissingKorealy || ours.Delta != -99 {
		t.Errorf("MS-9: %+v", ours)
	}
	for _, r := range records {
		if r.RunID != "run-1" {
			t.Errorf("record %s carries run_id %q", r.OrderNumber, r.RunID)
		}
	}
}
