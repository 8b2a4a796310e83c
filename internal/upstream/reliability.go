package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilityConfig — параметры защитного контура вокруг внешних API
type ReliabilityConfig struct {
	Name           string
	RatePerSec     float64
	Burst          int
	Attempts       uint
	AttemptTimeout time.Duration
	CBMaxRequests  uint32
	CBInterval     time.Duration
	CBTimeout      time.Duration

	// OnBreakerChange дергается при переключении предохранителя (для метрик)
	OnBreakerChange func(name string, open bool)
}

// Reliability — цепочка Rate Limiter -> Circuit Breaker -> Retry вокруг одного вызова.
type Reliability struct {
	cfg     ReliabilityConfig
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewReliability(cfg ReliabilityConfig) *Reliability {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if cfg.OnBreakerChange != nil {
				cfg.OnBreakerChange(name, to == gobreaker.StateOpen)
			}
		},
	})

	return &Reliability{
		cfg:     cfg,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

// Do исполняет fn под защитой всей цепочки
func (r *Reliability) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := r.cb.Execute(func() (interface{}, error) {
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(r.cfg.Attempts),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если API вернул ThrottleError (прочитан Retry-After) — ждем сколько просят
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка) — экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := rt.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
			defer cancel()
			return fn(tCtx)
		})

		return nil, retryErr
	})

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
