package queue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/polpa/costengine/internal/core"
)

// JobStore is the durable storage behind the queue manager. The postgres
// implementation below is the production one; tests substitute their own.
type JobStore interface {
	// Insert adds a queued job. It returns false when an active job with the
	// same key already exists and the insert coalesced into a no-op.
	Insert(ctx context.Context, jobKey, predictionID string, maxAttempts int, runAt time.Time) (bool, error)
	// ClaimDue atomically claims one due job, moving it to processing and
	// bumping its attempt counter. Processing jobs untouched for longer than
	// the visibility timeout count as due again, so a worker killed mid-job
	// does not strand its job (or block re-enqueueing the same prediction)
	// forever. ok is false when nothing is due.
	ClaimDue(ctx context.Context) (job *core.QueueJob, ok bool, err error)
	// Delete removes a job outright (used after successful processing).
	Delete(ctx context.Context, id int64) error
	// Reschedule returns a job to the queued state with a new due time.
	Reschedule(ctx context.Context, id int64, lastError string, nextRunAt time.Time) error
	// MarkFailed parks a job in the failed state for operator inspection.
	MarkFailed(ctx context.Context, id int64, lastError string) error
	// PruneFailed deletes failed jobs beyond the newest keep entries.
	PruneFailed(ctx context.Context, keep int) error
	// ListFailed returns up to limit failed jobs, newest first.
	ListFailed(ctx context.Context, limit int) ([]core.QueueJob, error)
}

// DefaultVisibilityTimeout bounds how long a claimed job may sit in the
// processing state before another worker may reclaim it.
const DefaultVisibilityTimeout = 5 * time.Minute

type postgresJobStore struct {
	db         *sqlx.DB
	visibility time.Duration
}

// NewJobStore creates the postgres-backed JobStore.
func NewJobStore(db *sqlx.DB, visibility time.Duration) JobStore {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &postgresJobStore{db: db, visibility: visibility}
}

func (s *postgresJobStore) Insert(ctx context.Context, jobKey, predictionID string, maxAttempts int, runAt time.Time) (bool, error) {
	// The partial unique index on active job keys turns a duplicate enqueue
	// into a no-op insert.
	const q = `
		INSERT INTO queue_jobs (job_key, prediction_id, status, attempts, max_attempts, next_run_at)
		VALUES ($1, $2, 'queued', 0, $3, $4)
		ON CONFLICT (job_key) WHERE status IN ('queued', 'processing') DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, jobKey, predictionID, maxAttempts, runAt.UTC())
	if err != nil {
		return false, &core.PersistenceError{Op: "enqueue job", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &core.PersistenceError{Op: "enqueue job", Err: err}
	}
	return n > 0, nil
}

func (s *postgresJobStore) ClaimDue(ctx context.Context) (*core.QueueJob, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, &core.PersistenceError{Op: "claim job", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	// Row locks arbitrate between concurrent workers; SKIP LOCKED keeps an
	// idle worker from queueing behind a busy one. Processing rows past the
	// visibility timeout were claimed by a worker that never settled them
	// and are reclaimed here.
	const selectQ = `
		SELECT id, job_key, prediction_id, status, attempts, max_attempts,
		       last_error, next_run_at, created_at, updated_at
		FROM queue_jobs
		WHERE (status = 'queued' AND next_run_at <= now())
		   OR (status = 'processing' AND updated_at < now() - make_interval(secs => $1))
		ORDER BY next_run_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1`

	var job core.QueueJob
	err = tx.GetContext(ctx, &job, selectQ, s.visibility.Seconds())
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Commit()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &core.PersistenceError{Op: "claim job", Err: err}
	}

	const updateQ = `
		UPDATE queue_jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING attempts`
	if err := tx.GetContext(ctx, &job.Attempts, updateQ, job.ID); err != nil {
		return nil, false, &core.PersistenceError{Op: "claim job", Err: err}
	}
	job.Status = core.JobStatusProcessing

	if err := tx.Commit(); err != nil {
		return nil, false, &core.PersistenceError{Op: "claim job", Err: err}
	}
	return &job, true, nil
}

func (s *postgresJobStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_jobs WHERE id = $1`, id); err != nil {
		return &core.PersistenceError{Op: "delete job", Err: err}
	}
	return nil
}

func (s *postgresJobStore) Reschedule(ctx context.Context, id int64, lastError string, nextRunAt time.Time) error {
	const q = `
		UPDATE queue_jobs
		SET status = 'queued', last_error = $2, next_run_at = $3, updated_at = now()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, lastError, nextRunAt.UTC()); err != nil {
		return &core.PersistenceError{Op: "reschedule job", Err: err}
	}
	return nil
}

func (s *postgresJobStore) MarkFailed(ctx context.Context, id int64, lastError string) error {
	const q = `
		UPDATE queue_jobs
		SET status = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, lastError); err != nil {
		return &core.PersistenceError{Op: "fail job", Err: err}
	}
	return nil
}

func (s *postgresJobStore) PruneFailed(ctx context.Context, keep int) error {
	const q = `
		DELETE FROM queue_jobs
		WHERE status = 'failed' AND id NOT IN (
			SELECT id FROM queue_jobs WHERE status = 'failed'
			ORDER BY updated_at DESC LIMIT $1
		)`
	if _, err := s.db.ExecContext(ctx, q, keep); err != nil {
		return &core.PersistenceError{Op: "prune failed jobs", Err: err}
	}
	return nil
}

func (s *postgresJobStore) ListFailed(ctx context.Context, limit int) ([]core.QueueJob, error) {
	const q = `
		SELECT id, job_key, prediction_id, status, attempts, max_attempts,
		       last_error, next_run_at, created_at, updated_at
		FROM queue_jobs
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1`

	var jobs []core.QueueJob
	if err := s.db.SelectContext(ctx, &jobs, q, limit); err != nil {
		return nil, &core.PersistenceError{Op: "list failed jobs", Err: err}
	}
	return jobs, nil
}
