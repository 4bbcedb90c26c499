// Package storage implements the persistent record store backing the
// prediction lifecycle, plus an optional redis read cache.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"

	"github.com/polpa/costengine/internal/core"
)

//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store

// Store defines the interface for all prediction persistence operations.
// Implementations report unknown ids as core.NotFoundError and store
// unavailability as core.PersistenceError.
type Store interface {
	CreatePrediction(ctx context.Context, p *core.Prediction) error
	GetPrediction(ctx context.Context, id string) (*core.Prediction, error)
	ListPredictions(ctx context.Context, ownerID string, page, limit int) ([]core.Prediction, int, error)
	SetProcessing(ctx context.Context, id string) (*core.Prediction, error)
	SetCompleted(ctx context.Context, id string, c core.Completion, advisory string) (*core.Prediction, error)
	SetError(ctx context.Context, id string, message string) (*core.Prediction, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

const predictionColumns = `
	id, owner_id, status, currency, volume_ton, lead_time_days, fuel_index,
	tax_multiplier, input_json, cost_total, euro_per_kg, output_json,
	model_used, model_version, artifact_path, error_message, created_at, updated_at`

// CreatePrediction inserts a new PENDING record. It fills CreatedAt and
// UpdatedAt on the passed prediction.
func (s *postgresStore) CreatePrediction(ctx context.Context, p *core.Prediction) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO predictions (id, owner_id, status, currency, volume_ton,
			lead_time_days, fuel_index, tax_multiplier, input_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Status, p.Currency, p.VolumeTon,
		p.LeadTimeDays, p.FuelIndex, p.TaxMultiplier, []byte(p.InputJSON),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return &core.PersistenceError{Op: "create prediction", Err: err}
	}
	return nil
}

// GetPrediction retrieves a prediction by id.
func (s *postgresStore) GetPrediction(ctx context.Context, id string) (*core.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	var p core.Prediction
	err := s.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Resource: "prediction", ID: id}
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "get prediction", Err: err}
	}
	return &p, nil
}

// ListPredictions returns one page of predictions, newest first, plus the
// total matching count. An empty ownerID lists across all owners.
func (s *postgresStore) ListPredictions(ctx context.Context, ownerID string, page, limit int) ([]core.Prediction, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var (
		total int
		rows  []core.Prediction
		err   error
	)
	if ownerID == "" {
		err = s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM predictions`)
	} else {
		err = s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM predictions WHERE owner_id = $1`, ownerID)
	}
	if err != nil {
		return nil, 0, &core.PersistenceError{Op: "count predictions", Err: err}
	}

	if ownerID == "" {
		query := `SELECT ` + predictionColumns + `
			FROM predictions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = s.db.SelectContext(ctx, &rows, query, limit, offset)
	} else {
		query := `SELECT ` + predictionColumns + `
			FROM predictions WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = s.db.SelectContext(ctx, &rows, query, ownerID, limit, offset)
	}
	if err != nil {
		return nil, 0, &core.PersistenceError{Op: "list predictions", Err: err}
	}
	return rows, total, nil
}

// SetProcessing moves a prediction to PROCESSING.
func (s *postgresStore) SetProcessing(ctx context.Context, id string) (*core.Prediction, error) {
	query := `
		UPDATE predictions
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + predictionColumns

	return s.returningRow(ctx, "mark processing", query, id, core.StatusProcessing)
}

// SetCompleted settles a prediction to COMPLETED, writing the result fields.
// The error_message column is overwritten with the advisory warning, or
// cleared when there is none, so a stale failure reason never survives a
// successful completion.
func (s *postgresStore) SetCompleted(ctx context.Context, id string, c core.Completion, advisory string) (*core.Prediction, error) {
	var advisoryCol *string
	if advisory != "" {
		advisoryCol = &advisory
	}

	query := `
		UPDATE predictions
		SET status = $2, cost_total = $3, euro_per_kg = $4, output_json = $5,
			model_used = NULLIF($6, ''), model_version = NULLIF($7, ''),
			artifact_path = NULLIF($8, ''), error_message = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + predictionColumns

	return s.returningRow(ctx, "mark completed", query, id, core.StatusCompleted,
		c.CostTotal, c.EuroPerKg, []byte(c.OutputJSON), c.ModelUsed, c.ModelVersion,
		c.ArtifactPath, advisoryCol)
}

// SetError settles a prediction to ERROR with the given failure reason. The
// result columns are cleared: a record corrected to ERROR after an earlier
// completion must not keep serving the stale cost figures.
func (s *postgresStore) SetError(ctx context.Context, id string, message string) (*core.Prediction, error) {
	query := `
		UPDATE predictions
		SET status = $2, error_message = $3,
			cost_total = NULL, euro_per_kg = NULL, output_json = NULL,
			model_used = NULL, model_version = NULL, artifact_path = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + predictionColumns

	return s.returningRow(ctx, "mark error", query, id, core.StatusError, message)
}

func (s *postgresStore) returningRow(ctx context.Context, op, query string, id string, args ...any) (*core.Prediction, error) {
	var p core.Prediction
	err := s.db.GetContext(ctx, &p, query, append([]any{id}, args...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Resource: "prediction", ID: id}
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: op, Err: err}
	}
	return &p, nil
}
