// Package queue implements the durable, at-least-once job queue between the
// dispatcher and the worker pool. Enqueue is idempotent on the prediction's
// job key; retry scheduling follows an explicit RetryPolicy; exhausted jobs
// are retained (bounded) for operator inspection.
package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/polpa/costengine/internal/core"
)

// Enqueuer is the narrow surface dispatch strategies need.
type Enqueuer interface {
	Enqueue(ctx context.Context, predictionID string) error
}

// Manager coordinates the durable queue: idempotent enqueue, claims, and the
// retry/retention bookkeeping after each attempt.
type Manager struct {
	store     JobStore
	policy    RetryPolicy
	retention int
	hooks     core.FailureHooks
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager builds a Manager. A zero retention falls back to 500 retained
// failed jobs.
func NewManager(store JobStore, policy RetryPolicy, retention int, hooks core.FailureHooks, logger *slog.Logger) *Manager {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if retention <= 0 {
		retention = 500
	}
	return &Manager{
		store:     store,
		policy:    policy,
		retention: retention,
		hooks:     hooks,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue inserts a job for the prediction. A duplicate enqueue while an
// active job exists for the same prediction coalesces into a no-op. This is
// the sole mechanism preventing two workers from processing one prediction
// concurrently.
func (m *Manager) Enqueue(ctx context.Context, predictionID string) error {
	jobKey := core.JobKeyFor(predictionID)

	inserted, err := m.store.Insert(ctx, jobKey, predictionID, m.policy.MaxAttempts, m.now())
	if err != nil {
		return err
	}
	if !inserted {
		m.logger.Info("enqueue coalesced into existing job", "job_key", jobKey)
		return nil
	}

	m.logger.Info("prediction job enqueued", "job_key", jobKey, "max_attempts", m.policy.MaxAttempts)
	return nil
}

// Claim hands the oldest due job to a worker, if any.
func (m *Manager) Claim(ctx context.Context) (*core.QueueJob, bool, error) {
	return m.store.ClaimDue(ctx)
}

// Complete removes a successfully processed job. Processed jobs have no
// replay value and are not retained.
func (m *Manager) Complete(ctx context.Context, job *core.QueueJob) error {
	return m.store.Delete(ctx, job.ID)
}

// Fail settles a failed delivery attempt: reschedule with backoff while the
// attempt budget lasts, otherwise park the job as failed and prune the
// failed backlog. Permanent errors (for example an unknown prediction id)
// skip the remaining budget.
func (m *Manager) Fail(ctx context.Context, job *core.QueueJob, cause error, permanent bool) error {
	exhausted := permanent || m.policy.Exhausted(job.Attempts)

	m.hooks.QueueFailed(core.QueueFailure{
		JobKey:       job.JobKey,
		PredictionID: job.PredictionID,
		Attempt:      job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		Permanent:    exhausted,
		Err:          cause,
	})

	if !exhausted {
		delay := m.policy.NextDelay(job.Attempts)
		nextRun := m.now().Add(delay)
		m.logger.Warn("job attempt failed, rescheduling",
			"job_key", job.JobKey,
			"attempt", job.Attempts,
			"max_attempts", job.MaxAttempts,
			"retry_in", delay,
			"error", cause,
		)
		return m.store.Reschedule(ctx, job.ID, cause.Error(), nextRun)
	}

	m.logger.Error("job failed permanently",
		"job_key", job.JobKey,
		"attempts", job.Attempts,
		"error", cause,
	)
	if err := m.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		return err
	}
	return m.store.PruneFailed(ctx, m.retention)
}

// ListFailed exposes the retained failed jobs for operator inspection.
func (m *Manager) ListFailed(ctx context.Context, limit int) ([]core.QueueJob, error) {
	if limit <= 0 || limit > m.retention {
		limit = m.retention
	}
	return m.store.ListFailed(ctx, limit)
}
