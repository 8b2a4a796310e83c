package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/miraiskin/platform/internal/console/handler"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/miraiskin/platform/internal/infra/auth"
	"github.com/miraiskin/platform/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	cfg     *infra.Config
	metrics *metrics.Metrics
	reg     *prometheus.Registry

	// Интерфейс для проверки токенов (RS256)
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler     // /auth/token
	pricingHandler  *handler.PricingHandler  // /api/pricing
	trackingHandler *handler.TrackingHandler // /api/tracking
	socialHandler   *handler.SocialHandler   // /api/social-media
	korealyHandler  *handler.KorealyHandler  // /api/korealy
	reportHandler   *handler.ReportHandler   // /api/reports
	taskHandler     *handler.TaskHandler     // /api/tasks (поллинг статусов)
	auditHandler    *handler.AuditHandler    // /api/audit (Logs)
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	m *metrics.Metrics,
	reg *prometheus.Registry,
	authH *handler.AuthHandler,
	pricingH *handler.PricingHandler,
	trackingH *handler.TrackingHandler,
	socialH *handler.SocialHandler,
	korealyH *handler.KorealyHandler,
	reportH *handler.ReportHandler,
	taskH *handler.TaskHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		metrics:         m,
		reg:             reg,
		authValidator:   validator,
		authHandler:     authH,
		pricingHandler:  pricingH,
		trackingHandler: trackingH,
		socialHandler:   socialH,
		korealyHandler:  korealyH,
		reportHandler:   reportH,
		taskHandler:     taskH,
		auditHandler:    auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if s.reg != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Pricing (каталог, цели, конкурентный анализ, staging-апдейты)
		r.Route("/api/pricing", func(r chi.Router) {
			r.Get("/items", s.pricingHandler.ListItems)
			r.Get("/analysis", s.pricingHandler.GetAnalysis)

			r.Get("/target-prices", s.pricingHandler.ListTargets)
			r.Put("/target-prices", s.pricingHandler.SaveTarget)
			r.Delete("/target-prices/{sku}", s.pricingHandler.DeleteTarget)

			r.Post("/sync", s.pricingHandler.EnqueueSync) // Застейджить апдейты цен
			r.Post("/scan", s.pricingHandler.EnqueueScan) // Обновить цены конкурентов

			r.Route("/updates", func(r chi.Router) {
				r.Get("/", s.pricingHandler.ListUpdates) // Очередь на проверку оператором
				r.Post("/{id}/decide", s.pricingHandler.Decide)
			})

			// Ограждающие правила (включая Wildcard '*')
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", s.pricingHandler.ListRules)
				r.Post("/", s.pricingHandler.CreateRule)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.pricingHandler.GetRule)
					r.Put("/", s.pricingHandler.UpdateRule)
					r.Delete("/", s.pricingHandler.DeleteRule)
				})
			})
		})

		// Tracking (отправления, события курьеров)
		r.Route("/api/tracking", func(r chi.Router) {
			r.Get("/shipments", s.trackingHandler.ListShipments)
			r.Get("/shipments/{id}", s.trackingHandler.GetShipment)
			r.Get("/stats", s.trackingHandler.GetStats)
			r.Post("/sync", s.trackingHandler.EnqueueSync)
		})

		// Social Media (посты, генерация текстов, стратегии)
		r.Route("/api/social-media", func(r chi.Router) {
			r.Get("/posts", s.socialHandler.ListPosts)
			r.Post("/posts", s.socialHandler.CreatePost)
			r.Get("/posts/{id}", s.socialHandler.GetPost)
			r.Post("/posts/{id}/publish", s.socialHandler.Publish)

			r.Post("/generate", s.socialHandler.Generate)

			r.Get("/strategies", s.socialHandler.ListStrategies)
			r.Put("/strategies/{id}", s.socialHandler.UpdateStrategy)

			r.Get("/decisions", s.socialHandler.ListDecisions)
		})

		// Korealy (сверка выплат)
		r.Route("/api/korealy", func(r chi.Router) {
			r.Get("/records", s.korealyHandler.ListRecords)
			r.Post("/records/{id}/resolve", s.korealyHandler.Resolve)
			r.Get("/summary", s.korealyHandler.GetSummary)
			r.Post("/reconcile", s.korealyHandler.EnqueueReconcile)
		})

		// Reports (сводный дашборд и продажи)
		r.Route("/api/reports", func(r chi.Router) {
			r.Get("/overview", s.reportHandler.GetOverview)
			r.Get("/sales", s.reportHandler.GetSales)
		})

		// Фоновые задачи (поллинг статусов + управление видами)
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", s.taskHandler.List)
			r.Post("/", s.taskHandler.Enqueue)
			r.Get("/{id}", s.taskHandler.Get)
			r.Post("/kinds/{kind}/pause", s.taskHandler.Pause)
			r.Post("/kinds/{kind}/resume", s.taskHandler.Resume)
		})

		// Совместимость с фронтом: /status/{id} — тот же поллинг задач
		r.Get("/status/{id}", s.taskHandler.Get)

		// Аудит и Логи (Observability)
		r.Get("/api/audit", s.auditHandler.GetLogs)
	})
}

// observe пишет длительность запроса в гистограмму по роуту и статусу
func (s *ConsoleServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
