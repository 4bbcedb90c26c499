package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/dispatch"
	"github.com/polpa/costengine/internal/mlclient"
	"github.com/polpa/costengine/internal/prediction"
)

// maxBodyBytes bounds request payloads; prediction inputs are small.
const maxBodyBytes = 1 << 20

// PredictionHandler serves the prediction API: create (via the configured
// dispatch strategy), get, list, plus the remote training and model listing
// proxies.
type PredictionHandler struct {
	svc      prediction.Service
	strategy dispatch.Strategy
	client   mlclient.Client
	logger   *slog.Logger
}

// NewPredictionHandler creates the handler.
func NewPredictionHandler(svc prediction.Service, strategy dispatch.Strategy, client mlclient.Client, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{svc: svc, strategy: strategy, client: client, logger: logger}
}

// Create handles POST /predictions. Queued mode answers 202 with the id to
// poll; sync mode answers 200 with the terminal result, or 502 when the
// remote call could not be completed at all.
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "failed to read request body")
		return
	}

	var input core.PredictionInput
	if err := json.Unmarshal(raw, &input); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "request body is not valid JSON")
		return
	}

	res, err := h.strategy.Dispatch(r.Context(), identity.UserID, input, raw)
	if err != nil {
		h.writeDispatchFailure(w, res, err)
		return
	}

	if res.Queued {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":     res.Prediction.ID,
			"status": "queued",
		})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse(res))
}

// writeDispatchFailure distinguishes a sync request whose remote call never
// produced a response (gateway error) from ordinary domain failures. When
// the remote answered with a non-2xx, the prediction is already settled to
// ERROR and that terminal result is the response.
func (h *PredictionHandler) writeDispatchFailure(w http.ResponseWriter, res *dispatch.Result, err error) {
	if res != nil && res.Prediction != nil {
		var upstream *core.UpstreamHTTPError
		if errors.As(err, &upstream) {
			writeJSON(w, http.StatusOK, syncResponse(res))
			return
		}
		// Timeout or transport failure before any response arrived.
		h.logger.Error("inline prediction call failed", "id", res.Prediction.ID, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
		return
	}
	writeDomainError(w, err)
}

// syncResponse flattens the remote output and annotates it with the record
// id and terminal status.
func syncResponse(res *dispatch.Result) map[string]any {
	body := map[string]any{}
	if res.Remote != nil {
		body["costTotal"] = res.Remote.CostTotal
		body["currency"] = res.Remote.Currency
		body["breakdown"] = res.Remote.Breakdown
	}
	body["id"] = res.Prediction.ID
	body["status"] = string(res.Prediction.Status)
	if res.Prediction.ErrorMessage != nil {
		body["error"] = *res.Prediction.ErrorMessage
	}
	if res.Prediction.EuroPerKg != nil {
		body["euroPerKg"] = *res.Prediction.EuroPerKg
	}
	return body
}

// Get handles GET /predictions/{id}.
func (h *PredictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	p, err := h.svc.Get(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /predictions?page&limit, scoped to the caller.
func (h *PredictionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 20)

	rows, pagination, err := h.svc.List(r.Context(), identity, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if rows == nil {
		rows = []core.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"predictions": rows,
		"pagination":  pagination,
	})
}

// Train handles POST /predictions/train, proxying a training run to the
// remote service. Elevated role only.
func (h *PredictionHandler) Train(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}
	if !identity.Elevated() {
		writeError(w, http.StatusForbidden, "forbidden", "training requires an elevated role")
		return
	}

	var req mlclient.TrainRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "request body is not valid JSON")
		return
	}

	job, err := h.client.Train(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// Models handles GET /models, listing the model versions the remote service
// currently serves.
func (h *PredictionHandler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.client.ListModels(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if models == nil {
		models = []mlclient.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
