package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/proposals" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"sku":"MS-001","proposed_price":19.9}]}`))
	}))
	defer srv.Close()

	engine := NewPricingEngine(NewClient(srv.URL, 2*time.Second, nil))
	items, err := engine.FetchProposals(context.Background())
	if err != nil {
		t.Fatalf("FetchProposals: %v", err)
	}
	if len(items) != 1 || items[0].SKU != "MS-001" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestDoJSONThrottle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, nil)
	err := c.doJSON(context.Background(), "test.op", http.MethodGet, "/x", nil, nil)

	var tErr *ThrottleError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected ThrottleError, got %v", err)
	}
	if tErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", tErr.RetryAfter)
	}
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, nil)
	err := c.doJSON(context.Background(), "test.op", http.MethodGet, "/x", nil, nil)

	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if sErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", sErr.Status)
	}
}

func TestReliabilityRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	rel := NewReliability(ReliabilityConfig{
		Name:           "test",
		RatePerSec:     1000,
		Burst:          100,
		Attempts:       5,
		AttemptTimeout: time.Second,
	})
	k := NewKorealy(NewClient(srv.URL, 2*time.Second, rel))

	if _, err := k.FetchSettlement(context.Background(), 30); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", 5 * time.Second},
		{"12", 12 * time.Second},
		{"garbage", 5 * time.Second},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.header); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
