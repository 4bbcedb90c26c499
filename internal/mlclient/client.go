// Package mlclient is a thin HTTP client for the external prediction and
// training service. It makes exactly one attempt per invocation: retry
// policy belongs to the queue manager on the async path and is deliberately
// absent on the sync path.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
)

// DefaultTimeout bounds every remote call unless configured otherwise.
const DefaultTimeout = 25 * time.Second

// Meta carries correlation data the remote service echoes into webhooks.
type Meta struct {
	PredictionID string `json:"predictionId"`
}

// PredictRequest is the wire format the remote service expects.
type PredictRequest struct {
	Currency      string             `json:"currency"`
	VolumeTon     float64            `json:"volumeTon"`
	LeadTimeDays  int                `json:"leadTimeDays"`
	FuelIndex     float64            `json:"fuelIndex"`
	TaxMultiplier float64            `json:"taxMultiplier"`
	Route         core.Route         `json:"route"`
	FxRates       map[string]float64 `json:"fxRates"`
	Meta          Meta               `json:"meta"`
	ModelName     string             `json:"modelName,omitempty"`
}

// Breakdown details how the remote model produced its estimate.
type Breakdown struct {
	ModelUsed     string             `json:"modelUsed"`
	Version       string             `json:"version"`
	TaxMultiplier float64            `json:"taxMultiplier"`
	FuelIndex     float64            `json:"fuelIndex"`
	LeadTimeDays  int                `json:"leadTimeDays"`
	FxRates       map[string]float64 `json:"fxRates"`
	ArtifactPath  string             `json:"artifactPath"`
}

// PredictResponse is the remote service's answer to a predict call.
type PredictResponse struct {
	CostTotal float64   `json:"costTotal"`
	Currency  string    `json:"currency"`
	Breakdown Breakdown `json:"breakdown"`
}

// TrainRequest starts a remote training run.
type TrainRequest struct {
	ModelName string  `json:"modelName"`
	DataPath  string  `json:"dataPath"`
	TestSize  float64 `json:"testSize,omitempty"`
}

// TrainJob is the handle the remote service returns for an accepted
// training run.
type TrainJob struct {
	JobID     string `json:"jobId"`
	ModelName string `json:"modelName"`
	Status    string `json:"status"`
}

// ModelInfo describes one model artifact the remote service can serve.
type ModelInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

//go:generate mockgen -destination=../../mocks/mock_ml_client.go -package=mocks . Client

// Client is the remote prediction service boundary. Implementations carry a
// bounded timeout per call and raise core.UpstreamTimeout and
// core.UpstreamHTTPError so callers can distinguish the two.
type Client interface {
	Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error)
	Train(ctx context.Context, req TrainRequest) (*TrainJob, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type httpClient struct {
	baseURL string
	timeout time.Duration
	hc      *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client against cfg.BaseURL.
func NewClient(cfg config.MLConfig, logger *slog.Logger) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		hc: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxConnsPerHost:     10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

// Predict asks the remote service for a cost estimate. Single attempt, no
// caching.
func (c *httpClient) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	var resp PredictResponse
	if err := c.post(ctx, "predict", "/predict", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Train starts a remote training run and returns its job handle.
func (c *httpClient) Train(ctx context.Context, req TrainRequest) (*TrainJob, error) {
	var job TrainJob
	if err := c.post(ctx, "train", "/train", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListModels lists the model versions the remote service currently serves.
func (c *httpClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/versions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list models request: %w", err)
	}

	var models []ModelInfo
	if err := c.do("list models", httpReq, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *httpClient) post(ctx context.Context, op, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(op, httpReq, out)
}

func (c *httpClient) do(op string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &core.UpstreamTimeout{Operation: op, Err: err}
		}
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return &core.UpstreamTimeout{Operation: op, Err: err}
		}
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &core.UpstreamHTTPError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	c.logger.Debug("remote call finished", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

// isTimeout distinguishes an exceeded per-call bound from other transport
// failures, including the cancellation the http client reports when the
// request context deadline fires.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
