package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/prediction"
	"github.com/polpa/costengine/internal/storage"
)

// webhookPayload is the settlement report the remote prediction service
// posts back for asynchronously executed predictions.
type webhookPayload struct {
	PredictionID     string          `json:"predictionId"`
	Status           string          `json:"status"`
	Output           json.RawMessage `json:"output,omitempty"`
	Error            string          `json:"error,omitempty"`
	ProcessingTimeMs int64           `json:"processingTimeMs,omitempty"`
	ModelUsed        string          `json:"modelUsed,omitempty"`
	ModelVersion     string          `json:"modelVersion,omitempty"`
}

// webhookOutput is the subset of the remote output the receiver needs to
// settle the record; the full output is stored verbatim.
type webhookOutput struct {
	CostTotal float64 `json:"costTotal"`
	Breakdown struct {
		ModelUsed    string `json:"modelUsed"`
		Version      string `json:"version"`
		ArtifactPath string `json:"artifactPath"`
	} `json:"breakdown"`
}

// WebhookHandler settles predictions from authenticated callbacks. It reads
// the stored record directly to recompute the unit cost from the original
// input volume rather than trusting the caller's arithmetic.
type WebhookHandler struct {
	store  storage.Store
	svc    prediction.Service
	logger *slog.Logger
}

// NewWebhookHandler creates the handler.
func NewWebhookHandler(store storage.Store, svc prediction.Service, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{store: store, svc: svc, logger: logger}
}

// Receive handles POST /webhooks/ml.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "callback body is not valid JSON")
		return
	}
	if payload.PredictionID == "" {
		writeError(w, http.StatusBadRequest, "validation", "predictionId is required")
		return
	}
	if payload.Status != "completed" && payload.Status != "error" {
		writeError(w, http.StatusBadRequest, "validation", "status must be 'completed' or 'error'")
		return
	}

	pred, err := h.store.GetPrediction(r.Context(), payload.PredictionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var settled *core.Prediction
	switch payload.Status {
	case "completed":
		settled, err = h.settleCompleted(r.Context(), pred, payload)
	case "error":
		message := payload.Error
		if message == "" {
			message = "remote prediction service reported an unspecified failure"
		}
		settled, err = h.svc.MarkError(r.Context(), pred.ID, message)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("webhook settled prediction",
		"id", settled.ID,
		"status", settled.Status,
		"processing_time_ms", payload.ProcessingTimeMs,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     settled.ID,
		"status": string(settled.Status),
	})
}

func (h *WebhookHandler) settleCompleted(ctx context.Context, pred *core.Prediction, payload webhookPayload) (*core.Prediction, error) {
	if len(payload.Output) == 0 {
		return nil, core.NewValidationError("a completed callback must carry an output")
	}

	var out webhookOutput
	if err := json.Unmarshal(payload.Output, &out); err != nil {
		return nil, core.NewValidationError("callback output is not decodable: %v", err)
	}

	modelUsed := payload.ModelUsed
	if modelUsed == "" {
		modelUsed = out.Breakdown.ModelUsed
	}
	modelVersion := payload.ModelVersion
	if modelVersion == "" {
		modelVersion = out.Breakdown.Version
	}

	c := core.Completion{
		CostTotal:    out.CostTotal,
		EuroPerKg:    out.CostTotal / (pred.VolumeTon * 1000),
		OutputJSON:   payload.Output,
		ModelUsed:    modelUsed,
		ModelVersion: modelVersion,
		ArtifactPath: out.Breakdown.ArtifactPath,
	}
	return h.svc.MarkCompleted(ctx, pred.ID, c)
}
