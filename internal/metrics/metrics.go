// Package metrics exposes prometheus collectors for the queue and the
// worker pool.
package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polpa/costengine/internal/core"
)

// Metrics tracks queue and worker activity.
type Metrics struct {
	JobsEnqueued   prometheus.Counter
	JobsRetried    prometheus.Counter
	JobsFailed     prometheus.Counter
	WorkerFailures prometheus.Counter
	Predictions    *prometheus.CounterVec
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costengine_queue_jobs_enqueued_total",
			Help: "Jobs accepted by the durable queue, including coalesced enqueues.",
		}),
		JobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costengine_queue_jobs_retried_total",
			Help: "Delivery attempts that failed and were rescheduled with backoff.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costengine_queue_jobs_failed_total",
			Help: "Jobs that exhausted their attempt budget and were parked as failed.",
		}),
		WorkerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costengine_worker_failures_total",
			Help: "Job executions that failed inside a worker.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "costengine_predictions_total",
			Help: "Predictions settled, partitioned by terminal status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.JobsEnqueued, m.JobsRetried, m.JobsFailed, m.WorkerFailures, m.Predictions)
	return m
}

// Hooks builds the failure hooks the queue manager and worker pool emit
// into, forwarding every event to both the collectors and the logger. Hooks
// observe only; settlement stays with the workers.
func (m *Metrics) Hooks(logger *slog.Logger) core.FailureHooks {
	return core.FailureHooks{
		OnQueueFailure: func(f core.QueueFailure) {
			if f.Permanent {
				m.JobsFailed.Inc()
			} else {
				m.JobsRetried.Inc()
			}
			logger.Warn("queue delivery failure",
				"job_key", f.JobKey,
				"attempt", f.Attempt,
				"max_attempts", f.MaxAttempts,
				"permanent", f.Permanent,
				"error", f.Err,
			)
		},
		OnWorkerFailure: func(f core.WorkerFailure) {
			m.WorkerFailures.Inc()
			logger.Warn("worker job failure",
				"prediction_id", f.PredictionID,
				"worker_id", f.WorkerID,
				"error", f.Err,
			)
		},
	}
}
