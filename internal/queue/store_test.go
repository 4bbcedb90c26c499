package queue

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polpa/costengine/internal/core"
)

var jobCols = []string{
	"id", "job_key", "prediction_id", "status", "attempts", "max_attempts",
	"last_error", "next_run_at", "created_at", "updated_at",
}

func newMockJobStore(t *testing.T, visibility time.Duration) (JobStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewJobStore(sqlx.NewDb(db, "sqlmock"), visibility), mock
}

func TestClaimDueReclaimsStaleProcessingJobs(t *testing.T) {
	store, mock := newMockJobStore(t, 90*time.Second)
	now := time.Now().UTC()

	// The claim scan must also pick up processing rows past the visibility
	// timeout; otherwise a worker killed mid-job strands the job in
	// processing and the active-key index blocks re-enqueueing forever.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM queue_jobs\s+WHERE \(status = 'queued' AND next_run_at <= now\(\)\)`+
		`\s+OR \(status = 'processing' AND updated_at < now\(\) - make_interval\(secs => \$1\)\)`).
		WithArgs(90.0).
		WillReturnRows(sqlmock.NewRows(jobCols).AddRow(
			int64(7), "prediction-abc", "abc", "processing", 1, 3,
			"worker lost", now.Add(-10*time.Minute), now.Add(-10*time.Minute),
			now.Add(-10*time.Minute)))
	mock.ExpectQuery(`UPDATE queue_jobs\s+SET status = 'processing', attempts = attempts \+ 1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(2))
	mock.ExpectCommit()

	job, ok, err := store.ClaimDue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, "abc", job.PredictionID)
	assert.Equal(t, core.JobStatusProcessing, job.Status)
	assert.Equal(t, 2, job.Attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueNothingDue(t *testing.T) {
	// A zero visibility timeout falls back to the default.
	store, mock := newMockJobStore(t, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM queue_jobs`).
		WithArgs(DefaultVisibilityTimeout.Seconds()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	job, ok, err := store.ClaimDue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}
