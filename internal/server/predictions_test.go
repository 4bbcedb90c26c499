package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
	"github.com/polpa/costengine/internal/dispatch"
	"github.com/polpa/costengine/internal/mlclient"
	"github.com/polpa/costengine/internal/prediction"
	"github.com/polpa/costengine/mocks"
)

type handlerFixture struct {
	svc     *mocks.MockService
	client  *mocks.MockClient
	handler *PredictionHandler
}

func newHandlerFixture(t *testing.T, mode string) handlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	client := mocks.NewMockClient(ctrl)

	strategy, err := dispatch.NewStrategy(&config.Config{DispatchMode: mode}, svc, &fakeEnqueuer{}, client, nil, discardLogger())
	require.NoError(t, err)

	return handlerFixture{
		svc:     svc,
		client:  client,
		handler: NewPredictionHandler(svc, strategy, client, discardLogger()),
	}
}

type fakeEnqueuer struct {
	ids []string
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, predictionID string) error {
	f.ids = append(f.ids, predictionID)
	return nil
}

func authedRequest(method, target, body string, id core.Identity) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(WithIdentity(req.Context(), id))
}

func TestCreate_QueuedModeAnswers202(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	f.svc.EXPECT().Create(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusPending}, nil)

	req := authedRequest(http.MethodPost, "/predictions", `{"currency":"EUR","volumeTon":3}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p-1", body["id"])
	assert.Equal(t, "queued", body["status"])
}

func TestCreate_SyncModeAnswers200WithResult(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeSync)

	f.svc.EXPECT().Create(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusPending, VolumeTon: 1}, nil)
	f.client.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(
		&mlclient.PredictResponse{CostTotal: 2500, Currency: "EUR", Breakdown: mlclient.Breakdown{ModelUsed: "random_forest"}}, nil)
	euroPerKg := 2.5
	f.svc.EXPECT().MarkCompleted(gomock.Any(), "p-1", gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusCompleted, EuroPerKg: &euroPerKg}, nil)

	req := authedRequest(http.MethodPost, "/predictions", `{"currency":"EUR","volumeTon":1}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p-1", body["id"])
	assert.Equal(t, "COMPLETED", body["status"])
	assert.Equal(t, 2500.0, body["costTotal"])
	assert.Equal(t, 2.5, body["euroPerKg"])
}

func TestCreate_SyncModeTimeoutAnswers502(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeSync)

	f.svc.EXPECT().Create(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusPending, VolumeTon: 1}, nil)
	f.client.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(
		nil, &core.UpstreamTimeout{Operation: "predict", Err: context.DeadlineExceeded})
	f.svc.EXPECT().MarkError(gomock.Any(), "p-1", gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusError}, nil)

	req := authedRequest(http.MethodPost, "/predictions", `{"currency":"EUR","volumeTon":1}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreate_SyncModeRemoteRejectionAnswersTerminalError(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeSync)

	f.svc.EXPECT().Create(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusPending, VolumeTon: 1}, nil)
	f.client.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(
		nil, &core.UpstreamHTTPError{Operation: "predict", StatusCode: 422, Body: "bad route"})
	message := "upstream predict returned status 422: bad route"
	f.svc.EXPECT().MarkError(gomock.Any(), "p-1", gomock.Any()).Return(
		&core.Prediction{ID: "p-1", Status: core.StatusError, ErrorMessage: &message}, nil)

	req := authedRequest(http.MethodPost, "/predictions", `{"currency":"EUR","volumeTon":1}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	// The remote answered; the settled ERROR record is the result.
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ERROR", body["status"])
	assert.Contains(t, body["error"], "422")
}

func TestCreate_ValidationFailureAnswers400(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	f.svc.EXPECT().Create(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(
		nil, core.NewValidationError("volumeTon must be greater than 0, got 0"))

	req := authedRequest(http.MethodPost, "/predictions", `{"currency":"EUR","volumeTon":0}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "volumeTon")
}

func TestCreate_MalformedBody(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	req := authedRequest(http.MethodPost, "/predictions", "{broken", core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_ForwardsDomainErrors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", &core.NotFoundError{Resource: "prediction", ID: "x"}, http.StatusNotFound},
		{"forbidden", &core.AuthorizationError{Message: "not yours"}, http.StatusForbidden},
		{"store down", &core.PersistenceError{Op: "get"}, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t, config.DispatchModeQueued)
			f.svc.EXPECT().Get(gomock.Any(), gomock.Any(), "x").Return(nil, tc.err)

			req := authedRequest(http.MethodGet, "/predictions/x", "", core.Identity{UserID: "bob"})
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "x")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			rec := httptest.NewRecorder()
			f.handler.Get(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestList_ReturnsPagination(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	f.svc.EXPECT().List(gomock.Any(), core.Identity{UserID: "alice"}, 2, 5).Return(
		[]core.Prediction{{ID: "p-1", OwnerID: "alice"}},
		prediction.Pagination{Page: 2, Limit: 5, Total: 6, Pages: 2},
		nil,
	)

	req := authedRequest(http.MethodGet, "/predictions?page=2&limit=5", "", core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Predictions []core.Prediction     `json:"predictions"`
		Pagination  prediction.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Predictions, 1)
	assert.Equal(t, 2, body.Pagination.Pages)
}

func TestTrain_RequiresElevatedRole(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	req := authedRequest(http.MethodPost, "/predictions/train", `{"modelName":"random_forest","dataPath":"data/freight.csv"}`, core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Train(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTrain_ProxiesToRemote(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	f.client.EXPECT().Train(gomock.Any(), mlclient.TrainRequest{ModelName: "random_forest", DataPath: "data/freight.csv"}).Return(
		&mlclient.TrainJob{JobID: "t-1", ModelName: "random_forest", Status: "started"}, nil)

	req := authedRequest(http.MethodPost, "/predictions/train", `{"modelName":"random_forest","dataPath":"data/freight.csv"}`, core.Identity{UserID: "root", Role: "admin"})
	rec := httptest.NewRecorder()
	f.handler.Train(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "t-1")
}

func TestModels_ListsRemoteVersions(t *testing.T) {
	f := newHandlerFixture(t, config.DispatchModeQueued)

	f.client.EXPECT().ListModels(gomock.Any()).Return([]mlclient.ModelInfo{{Version: "v3"}}, nil)

	req := authedRequest(http.MethodGet, "/models", "", core.Identity{UserID: "alice"})
	rec := httptest.NewRecorder()
	f.handler.Models(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "v3")
}
