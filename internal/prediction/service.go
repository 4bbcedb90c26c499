// Package prediction implements the prediction lifecycle service: record
// creation, reads, and the settlement operations shared by the worker pool,
// the synchronous dispatcher and the webhook receiver.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/metrics"
	"github.com/polpa/costengine/internal/storage"
)

// InvalidCostMessage is stored when a completion carries a non-positive
// total cost. Such a completion is never valid and settles to ERROR instead.
const InvalidCostMessage = "Invalid cost total: must be greater than 0"

// ImplausibleUnitCost is the advisory threshold for euro-per-kg values. A
// completion above it still settles to COMPLETED but carries a warning.
const ImplausibleUnitCost = 10000.0

// Pagination describes one page of a list result.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Service exposes the prediction lifecycle. All state transitions run
// through MarkProcessing, MarkCompleted and MarkError, regardless of whether
// a worker, the inline dispatcher or the webhook receiver drives them.
//
//go:generate mockgen -destination=../../mocks/mock_prediction_service.go -package=mocks . Service
type Service interface {
	Create(ctx context.Context, ownerID string, input core.PredictionInput, raw json.RawMessage) (*core.Prediction, error)
	Get(ctx context.Context, caller core.Identity, id string) (*core.Prediction, error)
	List(ctx context.Context, caller core.Identity, page, limit int) ([]core.Prediction, Pagination, error)
	MarkProcessing(ctx context.Context, id string) (*core.Prediction, error)
	MarkCompleted(ctx context.Context, id string, c core.Completion) (*core.Prediction, error)
	MarkError(ctx context.Context, id string, message string) (*core.Prediction, error)
}

type service struct {
	store   storage.Store
	cache   *storage.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates the prediction service. Cache and metrics may be nil.
func NewService(store storage.Store, cache *storage.Cache, m *metrics.Metrics, logger *slog.Logger) Service {
	return &service{store: store, cache: cache, metrics: m, logger: logger}
}

// Create validates the request parameters and persists a PENDING record
// before any remote call is attempted, so the caller can always poll by id.
func (s *service) Create(ctx context.Context, ownerID string, input core.PredictionInput, raw json.RawMessage) (*core.Prediction, error) {
	if input.VolumeTon <= 0 {
		return nil, core.NewValidationError("volumeTon must be greater than 0, got %g", input.VolumeTon)
	}
	if input.Currency == "" {
		return nil, core.NewValidationError("currency is required")
	}
	if model := input.EffectiveModelName(); !knownModel(model) {
		return nil, core.NewValidationError("unknown model %q", model)
	}

	p := &core.Prediction{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Status:        core.StatusPending,
		Currency:      input.Currency,
		VolumeTon:     input.VolumeTon,
		LeadTimeDays:  input.LeadTimeDays,
		FuelIndex:     input.FuelIndex,
		TaxMultiplier: input.TaxMultiplier,
		InputJSON:     raw,
	}

	if err := s.store.CreatePrediction(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("prediction created", "id", p.ID, "owner", ownerID, "volume_ton", p.VolumeTon)
	return p, nil
}

// Get returns a prediction, enforcing that the caller owns the record or
// holds an elevated role.
func (s *service) Get(ctx context.Context, caller core.Identity, id string) (*core.Prediction, error) {
	if s.cache != nil {
		if p, ok := s.cache.GetPrediction(ctx, id); ok {
			if err := authorizeRead(caller, p); err != nil {
				return nil, err
			}
			return p, nil
		}
	}

	p, err := s.store.GetPrediction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(caller, p); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.PutPrediction(ctx, p)
	}
	return p, nil
}

// List returns the caller's own records, or everything for elevated roles.
func (s *service) List(ctx context.Context, caller core.Identity, page, limit int) ([]core.Prediction, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ownerFilter := caller.UserID
	if caller.Elevated() {
		ownerFilter = ""
	}

	rows, total, err := s.store.ListPredictions(ctx, ownerFilter, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return rows, Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// MarkProcessing transitions PENDING -> PROCESSING. Re-application to an
// already PROCESSING record is a tolerated no-op; a redelivered job may also
// legitimately pick up a record a failed earlier attempt left in ERROR.
func (s *service) MarkProcessing(ctx context.Context, id string) (*core.Prediction, error) {
	current, err := s.store.GetPrediction(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == core.StatusProcessing {
		return current, nil
	}

	p, err := s.store.SetProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return p, nil
}

// MarkCompleted settles a prediction to COMPLETED after sanity-checking the
// result. A non-positive cost total is never a valid completion and is
// redirected to MarkError. An implausible unit cost still completes, but the
// record carries an advisory warning that the next successful completion
// overwrites.
func (s *service) MarkCompleted(ctx context.Context, id string, c core.Completion) (*core.Prediction, error) {
	if c.CostTotal <= 0 {
		s.logger.Warn("rejecting completion with non-positive cost", "id", id, "cost_total", c.CostTotal)
		return s.MarkError(ctx, id, InvalidCostMessage)
	}

	advisory := ""
	if c.EuroPerKg > ImplausibleUnitCost {
		advisory = fmt.Sprintf("Warning: implausible unit cost of %.2f EUR/kg, please verify the input volume", c.EuroPerKg)
		s.logger.Warn("completion carries implausible unit cost", "id", id, "euro_per_kg", c.EuroPerKg)
	}

	p, err := s.store.SetCompleted(ctx, id, c, advisory)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.countSettlement(core.StatusCompleted)

	s.logger.Info("prediction completed", "id", id, "cost_total", c.CostTotal, "euro_per_kg", c.EuroPerKg, "model", c.ModelUsed)
	return p, nil
}

// MarkError settles a prediction to ERROR, storing the failure reason as the
// durable record of what went wrong.
func (s *service) MarkError(ctx context.Context, id string, message string) (*core.Prediction, error) {
	p, err := s.store.SetError(ctx, id, message)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.countSettlement(core.StatusError)

	s.logger.Info("prediction settled to error", "id", id, "reason", message)
	return p, nil
}

func (s *service) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func (s *service) countSettlement(status core.Status) {
	if s.metrics != nil {
		s.metrics.Predictions.WithLabelValues(string(status)).Inc()
	}
}

func authorizeRead(caller core.Identity, p *core.Prediction) error {
	if caller.Elevated() || caller.UserID == p.OwnerID {
		return nil
	}
	return &core.AuthorizationError{Message: "caller is neither the owner nor an elevated role"}
}

func knownModel(name string) bool {
	for _, m := range core.KnownModels {
		if m == name {
			return true
		}
	}
	return false
}
