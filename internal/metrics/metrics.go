package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eva_notifications_total",
			Help: "Push notifications by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	endpointsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eva_push_endpoints_pruned_total",
			Help: "Device tokens removed after the provider reported them invalid",
		},
	)

	workerRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eva_worker_run_duration_seconds",
			Help:    "Duration of scheduled worker runs",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 15, 60},
		},
		[]string{"worker"},
	)

	workerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eva_worker_errors_total",
			Help: "Scheduled worker runs that returned an error",
		},
		[]string{"worker"},
	)

	skippedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eva_scan_skipped_records_total",
			Help: "Records skipped by scanners because of data-quality problems",
		},
		[]string{"source", "reason"},
	)
)

// Outcomes usados no label "outcome"
const (
	OutcomeSent        = "sent"
	OutcomeTransient   = "transient"
	OutcomeInvalid     = "endpoint_invalid"
	OutcomeRateLimited = "rate_limited"
)

// ObserveNotifications soma n notificações de uma origem com um resultado
func ObserveNotifications(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	notificationsTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// ObservePruned soma tokens removidos
func ObservePruned(n int) {
	if n <= 0 {
		return
	}
	endpointsPruned.Add(float64(n))
}

// ObserveWorkerRun registra duração e erro de uma execução de worker
func ObserveWorkerRun(worker string, d time.Duration, err error) {
	workerRunDuration.WithLabelValues(worker).Observe(d.Seconds())
	if err != nil {
		workerErrors.WithLabelValues(worker).Inc()
	}
}

// ObserveSkipped registra um registro ignorado por problema de dados
func ObserveSkipped(source, reason string) {
	skippedRecords.WithLabelValues(source, reason).Inc()
}
