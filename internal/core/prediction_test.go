package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestJobKeyFor(t *testing.T) {
	assert.Equal(t, "prediction-abc-123", JobKeyFor("abc-123"))
}

func TestPredictionInput_Defaults(t *testing.T) {
	var in PredictionInput
	require.NoError(t, json.Unmarshal([]byte(`{"currency":"EUR","volumeTon":2}`), &in))

	assert.Equal(t, DefaultLeadTimeDays, in.EffectiveLeadTimeDays())
	assert.Equal(t, DefaultFuelIndex, in.EffectiveFuelIndex())
	assert.Equal(t, DefaultTaxMultiplier, in.EffectiveTaxMultiplier())
	assert.Equal(t, DefaultModelName, in.EffectiveModelName())
}

func TestPredictionInput_ExplicitValuesSurviveRoundTrip(t *testing.T) {
	raw := []byte(`{"currency":"USD","volumeTon":2,"leadTimeDays":0,"fuelIndex":0.9,"taxMultiplier":1.1,"modelName":"mlp"}`)

	var in PredictionInput
	require.NoError(t, json.Unmarshal(raw, &in))

	// An explicit zero is distinct from an absent field.
	assert.Equal(t, 0, in.EffectiveLeadTimeDays())
	assert.Equal(t, 0.9, in.EffectiveFuelIndex())
	assert.Equal(t, 1.1, in.EffectiveTaxMultiplier())
	assert.Equal(t, "mlp", in.EffectiveModelName())
}

func TestIdentity_Elevated(t *testing.T) {
	assert.True(t, Identity{UserID: "x", Role: "admin"}.Elevated())
	assert.False(t, Identity{UserID: "x", Role: "user"}.Elevated())
	assert.False(t, Identity{UserID: "x"}.Elevated())
}

func TestFailureHooks_ZeroValueIsSafe(t *testing.T) {
	var hooks FailureHooks
	hooks.QueueFailed(QueueFailure{JobKey: "prediction-x"})
	hooks.WorkerFailed(WorkerFailure{PredictionID: "x"})
}
