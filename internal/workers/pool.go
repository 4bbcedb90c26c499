// Package workers drains the durable queue with a fixed-size pool of
// consumers. Each worker claims one job at a time, replays the prediction's
// immutable input against the remote service, and settles the record through
// the prediction service.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/mlclient"
	"github.com/polpa/costengine/internal/prediction"
	"github.com/polpa/costengine/internal/queue"
	"github.com/polpa/costengine/internal/storage"
)

// DefaultConcurrency is the number of consumers when none is configured.
const DefaultConcurrency = 3

const defaultPollInterval = 500 * time.Millisecond

// Pool is a fixed set of goroutines polling the queue for due jobs. The
// queue broker arbitrates job ownership; the pool holds no in-process lock.
type Pool struct {
	queue        *queue.Manager
	svc          prediction.Service
	store        storage.Store
	client       mlclient.Client
	hooks        core.FailureHooks
	concurrency  int
	pollInterval time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds a worker pool. Zero or negative concurrency falls back to
// the default of 3.
func NewPool(q *queue.Manager, svc prediction.Service, store storage.Store, client mlclient.Client,
	hooks core.FailureHooks, concurrency int, pollInterval time.Duration, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Pool{
		queue:        q,
		svc:          svc,
		store:        store,
		client:       client,
		hooks:        hooks,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start launches the consumers. They run until Stop is called or the parent
// context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.concurrency {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.logger.Info("worker pool started", "workers", p.concurrency, "poll_interval", p.pollInterval)
}

// Stop cancels the consumers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// runWorker polls for due jobs until the context is cancelled, draining the
// queue whenever work is available.
func (p *Pool) runWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	p.logger.Info("starting prediction worker", "id", workerID)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down prediction worker", "id", workerID)
			return
		case <-ticker.C:
			for p.processOne(ctx, workerID) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// processOne claims and executes at most one job. It reports whether a job
// was claimed, so the caller can keep draining while the queue has work.
func (p *Pool) processOne(ctx context.Context, workerID int) bool {
	job, ok, err := p.queue.Claim(ctx)
	if err != nil {
		p.logger.Error("failed to claim job", "worker_id", workerID, "error", err)
		return false
	}
	if !ok {
		return false
	}

	p.logger.Info("worker processing job",
		"worker_id", workerID,
		"job_key", job.JobKey,
		"attempt", job.Attempts,
	)

	runErr := p.runJob(ctx, job)
	if runErr == nil {
		if err := p.queue.Complete(ctx, job); err != nil {
			p.logger.Error("failed to remove completed job", "job_key", job.JobKey, "error", err)
		}
		return true
	}

	p.hooks.WorkerFailed(core.WorkerFailure{
		PredictionID: job.PredictionID,
		WorkerID:     workerID,
		Err:          runErr,
	})

	// An unknown prediction can never succeed; skip the remaining attempts.
	permanent := core.IsNotFound(runErr)
	if err := p.queue.Fail(ctx, job, runErr, permanent); err != nil {
		p.logger.Error("failed to settle failed job", "job_key", job.JobKey, "error", err)
	}
	return true
}

// runJob executes one delivery attempt. On remote failure the prediction is
// settled to ERROR first and the error is returned afterwards, so the queue
// can still redeliver within the attempt budget. A later successful retry
// legitimately moves the same record from ERROR back through PROCESSING.
func (p *Pool) runJob(ctx context.Context, job *core.QueueJob) error {
	pred, err := p.store.GetPrediction(ctx, job.PredictionID)
	if err != nil {
		return err
	}

	if _, err := p.svc.MarkProcessing(ctx, pred.ID); err != nil {
		return err
	}

	req, err := buildPredictRequest(pred)
	if err != nil {
		_, _ = p.svc.MarkError(ctx, pred.ID, err.Error())
		return err
	}

	resp, err := p.client.Predict(ctx, *req)
	if err != nil {
		if _, markErr := p.svc.MarkError(ctx, pred.ID, err.Error()); markErr != nil {
			p.logger.Error("failed to record remote failure", "id", pred.ID, "error", markErr)
		}
		return err
	}

	_, err = p.svc.MarkCompleted(ctx, pred.ID, CompletionFromResponse(pred, resp))
	return err
}

// buildPredictRequest reconstructs the remote request from the prediction's
// immutable input, applying the documented defaults for optional fields.
func buildPredictRequest(pred *core.Prediction) (*mlclient.PredictRequest, error) {
	var input core.PredictionInput
	if err := json.Unmarshal(pred.InputJSON, &input); err != nil {
		return nil, fmt.Errorf("stored input for prediction %s is not decodable: %w", pred.ID, err)
	}

	return &mlclient.PredictRequest{
		Currency:      input.Currency,
		VolumeTon:     input.VolumeTon,
		LeadTimeDays:  input.EffectiveLeadTimeDays(),
		FuelIndex:     input.EffectiveFuelIndex(),
		TaxMultiplier: input.EffectiveTaxMultiplier(),
		Route:         input.Route,
		FxRates:       input.FxRates,
		ModelName:     input.EffectiveModelName(),
		Meta:          mlclient.Meta{PredictionID: pred.ID},
	}, nil
}

// CompletionFromResponse derives the settlement payload from a remote
// response: euroPerKg = costTotal / (volumeTon * 1000).
func CompletionFromResponse(pred *core.Prediction, resp *mlclient.PredictResponse) core.Completion {
	output, _ := json.Marshal(resp)
	return core.Completion{
		CostTotal:    resp.CostTotal,
		EuroPerKg:    resp.CostTotal / (pred.VolumeTon * 1000),
		OutputJSON:   output,
		ModelUsed:    resp.Breakdown.ModelUsed,
		ModelVersion: resp.Breakdown.Version,
		ArtifactPath: resp.Breakdown.ArtifactPath,
	}
}
