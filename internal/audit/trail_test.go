package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type captureStorage struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *captureStorage) WriteBatch(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureStorage) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestTrailFlushesOnStop(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop(), 100, time.Hour) // тикер не сработает, проверяем drain
	trail.Start()

	for i := 0; i < 7; i++ {
		trail.Log(Event{Actor: "op-1", Action: "task.enqueue"})
	}
	trail.Stop()

	if got := storage.total(); got != 7 {
		t.Fatalf("expected 7 events after final flush, got %d", got)
	}
}

func TestTrailSetsTimestamp(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop(), 10, time.Hour)
	trail.Start()

	trail.Log(Event{Actor: "op-1", Action: "pricing.decide"})
	trail.Stop()

	if storage.total() != 1 {
		t.Fatalf("expected 1 event, got %d", storage.total())
	}
	if storage.batches[0][0].Timestamp.IsZero() {
		t.Error("timestamp must be set by Log")
	}
}

func TestTrailDropsAfterStop(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop(), 10, time.Hour)
	trail.Start()
	trail.Stop()

	// После остановки событие должно быть отброшено без паники
	trail.Log(Event{Actor: "op-1", Action: "late"})
	if storage.total() != 0 {
		t.Fatalf("expected 0 events, got %d", storage.total())
	}
}

func TestTrailBatchLimit(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop(), 500, time.Hour)
	trail.batchSize = 5
	trail.Start()

	for i := 0; i < 12; i++ {
		trail.Log(Event{Actor: "runner", Action: "task.finish"})
	}
	trail.Stop()

	if got := storage.total(); got != 12 {
		t.Fatalf("expected 12 events, got %d", got)
	}
	// Первая пачка должна была уйти по лимиту, не дожидаясь Stop
	storage.mu.Lock()
	first := len(storage.batches[0])
	storage.mu.Unlock()
	if first != 5 {
		t.Errorf("expected first batch of 5, got %d", first)
	}
}
