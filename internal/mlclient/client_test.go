package mlclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
)

func testClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(config.MLConfig{BaseURL: srv.URL, Timeout: timeout}, logger)
}

func TestPredict_Success(t *testing.T) {
	var gotPath string
	var gotBody PredictRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(PredictResponse{
			CostTotal: 2500,
			Currency:  "EUR",
			Breakdown: Breakdown{ModelUsed: "random_forest", Version: "v3", ArtifactPath: "/models/v3"},
		})
	}, time.Second)

	req := PredictRequest{
		Currency:      "EUR",
		VolumeTon:     1,
		LeadTimeDays:  30,
		FuelIndex:     1.0,
		TaxMultiplier: 1.0,
		Meta:          Meta{PredictionID: "p-1"},
	}
	resp, err := client.Predict(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/predict", gotPath)
	assert.Equal(t, "p-1", gotBody.Meta.PredictionID)
	assert.Equal(t, 2500.0, resp.CostTotal)
	assert.Equal(t, "random_forest", resp.Breakdown.ModelUsed)
}

func TestPredict_Non2xxIsUpstreamHTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"model artifact missing"}`, http.StatusInternalServerError)
	}, time.Second)

	_, err := client.Predict(context.Background(), PredictRequest{})

	var upstream *core.UpstreamHTTPError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "model artifact missing")
	assert.Equal(t, "predict", upstream.Operation)
}

func TestPredict_TimeoutIsUpstreamTimeout(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}, 20*time.Millisecond)

	_, err := client.Predict(context.Background(), PredictRequest{})

	var timeout *core.UpstreamTimeout
	assert.ErrorAs(t, err, &timeout)
}

func TestPredict_ConnectionRefusedIsNotTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(config.MLConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger)

	_, err := client.Predict(context.Background(), PredictRequest{})
	require.Error(t, err)

	var timeout *core.UpstreamTimeout
	assert.False(t, errors.As(err, &timeout))
}

func TestTrain_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/train", r.URL.Path)
		_ = json.NewEncoder(w).Encode(TrainJob{JobID: "t-1", ModelName: "random_forest", Status: "started"})
	}, time.Second)

	job, err := client.Train(context.Background(), TrainRequest{ModelName: "random_forest", DataPath: "data/freight.csv"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", job.JobID)
	assert.Equal(t, "started", job.Status)
}

func TestListModels_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/versions", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode([]ModelInfo{
			{Version: "v3", Size: 1024},
			{Version: "v2", Size: 980},
		})
	}, time.Second)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "v3", models[0].Version)
}

func TestPredict_MalformedResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}, time.Second)

	_, err := client.Predict(context.Background(), PredictRequest{})
	assert.ErrorContains(t, err, "decode")
}
