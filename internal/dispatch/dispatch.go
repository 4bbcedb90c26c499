// Package dispatch selects between synchronous inline execution and durable
// enqueueing for new predictions. The strategy is chosen once at startup
// from configuration, never per request.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/metrics"
	"github.com/polpa/costengine/internal/mlclient"
	"github.com/polpa/costengine/internal/prediction"
	"github.com/polpa/costengine/internal/queue"
	"github.com/polpa/costengine/internal/workers"
)

// Result is the outcome of dispatching one request. Queued results carry a
// PENDING prediction; synchronous results carry the terminal record and, on
// success, the raw remote response.
type Result struct {
	Prediction *core.Prediction
	Remote     *mlclient.PredictResponse
	Queued     bool
}

// Strategy creates the PENDING record and either executes it inline or hands
// it to the queue.
type Strategy interface {
	Dispatch(ctx context.Context, ownerID string, input core.PredictionInput, raw json.RawMessage) (*Result, error)
}

// NewStrategy picks the configured strategy. Metrics may be nil.
func NewStrategy(cfg *config.Config, svc prediction.Service, enq queue.Enqueuer, client mlclient.Client, m *metrics.Metrics, logger *slog.Logger) (Strategy, error) {
	switch cfg.DispatchMode {
	case config.DispatchModeQueued:
		return &queuedStrategy{svc: svc, enq: enq, metrics: m, logger: logger}, nil
	case config.DispatchModeSync:
		return &syncStrategy{svc: svc, client: client, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported dispatch mode: %s", cfg.DispatchMode)
	}
}

// queuedStrategy persists the record and enqueues a job; the caller polls or
// waits for the webhook.
type queuedStrategy struct {
	svc     prediction.Service
	enq     queue.Enqueuer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func (s *queuedStrategy) Dispatch(ctx context.Context, ownerID string, input core.PredictionInput, raw json.RawMessage) (*Result, error) {
	p, err := s.svc.Create(ctx, ownerID, input, raw)
	if err != nil {
		return nil, err
	}

	if err := s.enq.Enqueue(ctx, p.ID); err != nil {
		// The record already exists and stays PENDING; the caller can still
		// poll it, so surface the queue failure as-is.
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.JobsEnqueued.Inc()
	}

	s.logger.Info("prediction dispatched to queue", "id", p.ID)
	return &Result{Prediction: p, Queued: true}, nil
}

// syncStrategy executes the remote call inline and settles the record before
// responding. No retries: a failed request is terminal and the caller must
// resubmit.
type syncStrategy struct {
	svc    prediction.Service
	client mlclient.Client
	logger *slog.Logger
}

func (s *syncStrategy) Dispatch(ctx context.Context, ownerID string, input core.PredictionInput, raw json.RawMessage) (*Result, error) {
	p, err := s.svc.Create(ctx, ownerID, input, raw)
	if err != nil {
		return nil, err
	}

	req := mlclient.PredictRequest{
		Currency:      input.Currency,
		VolumeTon:     input.VolumeTon,
		LeadTimeDays:  input.EffectiveLeadTimeDays(),
		FuelIndex:     input.EffectiveFuelIndex(),
		TaxMultiplier: input.EffectiveTaxMultiplier(),
		Route:         input.Route,
		FxRates:       input.FxRates,
		ModelName:     input.EffectiveModelName(),
		Meta:          mlclient.Meta{PredictionID: p.ID},
	}

	resp, err := s.client.Predict(ctx, req)
	if err != nil {
		settled, markErr := s.svc.MarkError(ctx, p.ID, err.Error())
		if markErr != nil {
			s.logger.Error("failed to record inline failure", "id", p.ID, "error", markErr)
			return nil, markErr
		}
		// The remote call itself failed; the handler decides whether this is
		// a gateway error or a terminal ERROR result.
		return &Result{Prediction: settled}, err
	}

	settled, err := s.svc.MarkCompleted(ctx, p.ID, workers.CompletionFromResponse(p, resp))
	if err != nil {
		return nil, err
	}

	s.logger.Info("prediction executed inline", "id", p.ID, "status", settled.Status)
	return &Result{Prediction: settled, Remote: resp}, nil
}
