package core

import "time"

// JobKeyPrefix is prepended to a prediction id to form the queue idempotency
// key. Re-enqueueing the same prediction id coalesces on this key, so two
// workers never process the same prediction concurrently.
const JobKeyPrefix = "prediction-"

// JobKeyFor derives the deterministic queue key for a prediction.
func JobKeyFor(predictionID string) string {
	return JobKeyPrefix + predictionID
}

// Queue job states as stored in the queue_jobs table. Succeeded jobs are
// deleted outright, so there is no terminal success state.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusFailed     = "failed"
)

// QueueJob is one durable unit of queued work. The payload is the prediction
// id only; workers re-read the immutable input from the store so the store
// stays the single source of truth.
type QueueJob struct {
	ID           int64     `db:"id"`
	JobKey       string    `db:"job_key"`
	PredictionID string    `db:"prediction_id"`
	Status       string    `db:"status"`
	Attempts     int       `db:"attempts"`
	MaxAttempts  int       `db:"max_attempts"`
	LastError    *string   `db:"last_error"`
	NextRunAt    time.Time `db:"next_run_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
