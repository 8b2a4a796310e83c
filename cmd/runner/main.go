package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/miraiskin/platform/internal/metrics"
	"github.com/miraiskin/platform/internal/repository/postgres"
	"github.com/miraiskin/platform/internal/rules"
	"github.com/miraiskin/platform/internal/runner"
	"github.com/miraiskin/platform/internal/runner/jobs"
	"github.com/miraiskin/platform/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// upstreams — реальные клиенты или мок, если адрес не задан (локальный стенд)
type upstreams struct {
	pricing   jobs.ProposalSource
	scanner   jobs.CompetitorSource
	carrier   jobs.Tracker
	instagram jobs.Publisher
	korealy   jobs.SettlementSource
}

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	initCtx, initCancel := context.WithTimeout(appCtx, 10*time.Second)
	store, err := postgres.NewStore(initCtx, cfg.Database)
	initCancel()
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	trail := audit.NewTrail(store, logger, cfg.Runner.AuditBuffer, cfg.Runner.AuditFlushInt)
	trail.Start()
	defer trail.Stop()

	// 3. Метрики
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	// Гейдж backpressure аудита
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				m.AuditBufferFill.Set(float64(trail.BufferFill()))
			}
		}
	}()

	ups := buildUpstreams(cfg, m, logger)

	// 4. Кэш guard-правил: память + Redis-сигнал об изменениях
	memo := rules.NewMemo(store, logger)
	if err := memo.Refresh(appCtx); err != nil {
		logger.Warn("initial rule cache load failed", zap.Error(err))
	}
	go runner.ListenRawResilient(appCtx, rdb, logger, infra.RedisChanRuleUpdate,
		func() error { return memo.Refresh(appCtx) },
		func(string) {
			if err := memo.Refresh(appCtx); err != nil {
				logger.Error("rule cache refresh failed", zap.Error(err))
			}
		},
	)
	analyzer := rules.NewAnalyzer(memo, logger)

	// 5. Сборка раннера
	pause := runner.NewPauseManager(rdb, cfg.Runner.PausedKinds, logger)
	run := runner.New(store, rdb, pause, trail, m, cfg.Runner.PollInterval, logger)
	run.Register(jobs.NewPriceSync(store, ups.pricing, analyzer, rdb, cfg.Runner.DecisionWait, logger))
	run.Register(jobs.NewCompetitorScan(store, ups.scanner, logger))
	run.Register(jobs.NewCarrierSync(store, ups.carrier, logger))
	run.Register(jobs.NewInstagramPublish(store, ups.instagram, logger))
	run.Register(jobs.NewKorealyReconcile(store, ups.korealy, logger))

	// 6. Экспорт метрик
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: mux,
	}
	go func() {
		logger.Info("metrics endpoint started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics listen failed", zap.Error(err))
		}
	}()

	go func() {
		if err := run.Run(appCtx); err != nil && err != context.Canceled {
			logger.Error("runner stopped with error", zap.Error(err))
		}
	}()

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("runner stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
	logger.Info("runner exited properly")
}

// buildUpstreams собирает клиентов внешних API, каждого за своим
// защитным контуром (Rate Limiter -> Circuit Breaker -> Retry)
func buildUpstreams(cfg *infra.Config, m *metrics.Metrics, logger *zap.Logger) upstreams {
	onBreaker := func(name string, open bool) {
		v := 0.0
		if open {
			v = 1.0
		}
		m.CircuitBreakerState.WithLabelValues(name).Set(v)
	}

	newClient := func(name, baseURL string) *upstream.Client {
		rel := upstream.NewReliability(upstream.ReliabilityConfig{
			Name:            name,
			RatePerSec:      cfg.Upstream.RatePerSec,
			AttemptTimeout:  cfg.Upstream.Timeout,
			CBMaxRequests:   cfg.Runner.CBMaxRequests,
			CBInterval:      cfg.Runner.CBInterval,
			CBTimeout:       cfg.Runner.CBTimeout,
			OnBreakerChange: onBreaker,
		})
		return upstream.NewClient(baseURL, cfg.Upstream.Timeout, rel)
	}

	mock := upstream.NewMock()
	ups := upstreams{
		pricing:   mock,
		scanner:   mock,
		carrier:   mock,
		instagram: mock,
		korealy:   mock,
	}

	if cfg.Upstream.PricingEngineURL != "" {
		engine := upstream.NewPricingEngine(newClient("pricing-engine", cfg.Upstream.PricingEngineURL))
		ups.pricing = engine
		ups.scanner = engine
	}
	if cfg.Upstream.CarrierURL != "" {
		ups.carrier = upstream.NewCarrierGateway(newClient("carrier", cfg.Upstream.CarrierURL))
	}
	if cfg.Upstream.InstagramURL != "" {
		ups.instagram = upstream.NewInstagram(newClient("instagram", cfg.Upstream.InstagramURL))
	}
	if cfg.Upstream.KorealyURL != "" {
		ups.korealy = upstream.NewKorealy(newClient("korealy", cfg.Upstream.KorealyURL))
	}

	for name, isMock := range map[string]bool{
		"pricing":   cfg.Upstream.PricingEngineURL == "",
		"carrier":   cfg.Upstream.CarrierURL == "",
		"instagram": cfg.Upstream.InstagramURL == "",
		"korealy":   cfg.Upstream.KorealyURL == "",
	} {
		if isMock {
			logger.Warn("upstream URL not set, using mock", zap.String("upstream", name))
		}
	}

	return ups
}
