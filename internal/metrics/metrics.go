package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность HTTP-запросов консоли
	RequestDuration *prometheus.HistogramVec

	// Traffic: кол-во выполненных фоновых задач по видам и исходам
	TasksTotal *prometheus.CounterVec

	// Latency: сколько выполнялась задача от claim до terminal-статуса
	TaskDuration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker внешнего сервиса (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirai_request_duration_seconds",
			Help:    "Histogram of console request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),

		TasksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mirai_tasks_total",
			Help: "Total number of executed background tasks.",
		}, []string{"kind", "result"}), // result: completed, failed

		TaskDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirai_task_duration_seconds",
			Help:    "Histogram of background task run times.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"kind"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "mirai_upstream_breaker_state",
			Help: "Current state of the upstream circuit breaker (0=closed, 1=open).",
		}, []string{"upstream"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mirai_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}
