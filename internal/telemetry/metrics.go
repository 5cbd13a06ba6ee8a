package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы шага для меток outcome.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

var (
	// StageDuration — длительность выполнения шага (включая удалённый вызов).
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itinera_stage_duration_seconds",
		Help:    "Stage execution duration",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"stage", "outcome"})

	// StageOutcomes — количество исходов шагов.
	StageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinera_stage_outcomes_total",
		Help: "Total number of stage outcomes",
	}, []string{"stage", "outcome"})

	// Notifications — отправленные уведомления по видам.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinera_notifications_total",
		Help: "Total number of progress notifications",
	}, []string{"kind"})

	// PlansFinalized — планы, перешедшие в финальный статус.
	PlansFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinera_plans_finalized_total",
		Help: "Total number of plans that reached a terminal status",
	}, []string{"status"})

	// HTTPRequests — запросы к API.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinera_api_http_requests_total",
		Help: "Total number of API HTTP requests",
	}, []string{"method", "status"})
)

// ObserveStage записывает длительность и исход шага.
func ObserveStage(stage, outcome string, d time.Duration) {
	StageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
	StageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// MetricsHandler возвращает handler для /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
