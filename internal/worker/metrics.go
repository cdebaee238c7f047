package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome is the result of reconciling one storage notification.
type Outcome string

const (
	OutcomeAvailable Outcome = "available"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

var (
	// notificationsTotal counts processed notifications by outcome.
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagevault_worker_notifications_total",
		Help: "Storage notifications processed by the reconciliation worker",
	}, []string{"outcome"})

	// thumbnailFailuresTotal counts non-fatal thumbnail failures by stage.
	thumbnailFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagevault_worker_thumbnail_failures_total",
		Help: "Thumbnail generation failures that left thumbnailKey empty",
	}, []string{"stage"})

	// batchFailuresTotal counts SQS messages reported as failed.
	batchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagevault_worker_message_failures_total",
		Help: "SQS messages that failed and will be redelivered",
	})

	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "imagevault_worker_batch_duration_seconds",
		Help:    "Time spent on one SQS batch",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)
