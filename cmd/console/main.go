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
	"github.com/miraiskin/platform/internal/console/handler"
	"github.com/miraiskin/platform/internal/console/server"
	"github.com/miraiskin/platform/internal/console/service"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/miraiskin/platform/internal/infra/auth"
	"github.com/miraiskin/platform/internal/metrics"
	"github.com/miraiskin/platform/internal/repository/postgres"
	"github.com/miraiskin/platform/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

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

	// Журнал действий операторов: пишется в базу пачками
	trail := audit.NewTrail(store, logger, cfg.Runner.AuditBuffer, cfg.Runner.AuditFlushInt)
	trail.Start()
	defer trail.Stop()

	// 3. Ключи RS256
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("invalid public key", zap.Error(err))
	}
	privKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("invalid private key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	// 4. Метрики
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	// 5. Внешний генератор текстов (единственный upstream консоли:
	// остальные коллабораторы дергает раннер)
	var generator service.CaptionGenerator
	if cfg.Upstream.GeneratorURL == "" {
		logger.Warn("generator URL not set, using mock")
		generator = upstream.NewMock()
	} else {
		rel := upstream.NewReliability(upstream.ReliabilityConfig{
			Name:           "generator",
			RatePerSec:     cfg.Upstream.RatePerSec,
			AttemptTimeout: cfg.Upstream.Timeout,
			CBMaxRequests:  cfg.Runner.CBMaxRequests,
			CBInterval:     cfg.Runner.CBInterval,
			CBTimeout:      cfg.Runner.CBTimeout,
			OnBreakerChange: func(name string, open bool) {
				v := 0.0
				if open {
					v = 1.0
				}
				m.CircuitBreakerState.WithLabelValues(name).Set(v)
			},
		})
		generator = upstream.NewGenerator(upstream.NewClient(cfg.Upstream.GeneratorURL, cfg.Upstream.Timeout, rel))
	}

	// 6. Сервисы и обработчики (Dependency Injection)
	taskService := service.NewTaskService(store, rdb, trail, logger)
	pricingService := service.NewPricingService(store, rdb, trail, logger)
	trackingService := service.NewTrackingService(store, logger)
	socialService := service.NewSocialService(store, generator, trail, logger)
	korealyService := service.NewKorealyService(store, trail, logger)
	reportService := service.NewReportService(store, rdb, logger)
	auditService := service.NewAuditService(store)
	authService := service.NewAuthService(store, privKey, cfg.Auth.TokenTTL)

	srv := server.NewConsoleServer(cfg, logger, validator, m, reg,
		handler.NewAuthHandler(authService),
		handler.NewPricingHandler(pricingService, taskService),
		handler.NewTrackingHandler(trackingService, taskService),
		handler.NewSocialHandler(socialService, taskService),
		handler.NewKorealyHandler(korealyService, taskService),
		handler.NewReportHandler(reportService),
		handler.NewTaskHandler(taskService),
		handler.NewAuditHandler(auditService),
	)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Запуск и Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console API started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("console API stopping...")
	cancel()

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console API exited properly")
}
