// Package core defines the essential data structures and interfaces that form
// the backbone of the application: the Prediction lifecycle, the queue job
// model, the error taxonomy, and the failure hooks shared by the queue and
// the worker pool.
package core

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a Prediction. It moves forward along
// PENDING -> PROCESSING -> {COMPLETED, ERROR}, or straight from PENDING to a
// terminal state when a request is executed inline.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Prediction is the persisted record of one cost-estimation request and its
// outcome. InputJSON is write-once: workers and the webhook receiver derive
// everything from it and the remote response, never from request-time copies.
type Prediction struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"ownerId"`
	Status  Status `db:"status" json:"status"`

	Currency      string   `db:"currency" json:"currency"`
	VolumeTon     float64  `db:"volume_ton" json:"volumeTon"`
	LeadTimeDays  *int     `db:"lead_time_days" json:"leadTimeDays,omitempty"`
	FuelIndex     *float64 `db:"fuel_index" json:"fuelIndex,omitempty"`
	TaxMultiplier *float64 `db:"tax_multiplier" json:"taxMultiplier,omitempty"`

	InputJSON json.RawMessage `db:"input_json" json:"input"`

	CostTotal    *float64        `db:"cost_total" json:"costTotal,omitempty"`
	EuroPerKg    *float64        `db:"euro_per_kg" json:"euroPerKg,omitempty"`
	OutputJSON   json.RawMessage `db:"output_json" json:"output,omitempty"`
	ModelUsed    *string         `db:"model_used" json:"modelUsed,omitempty"`
	ModelVersion *string         `db:"model_version" json:"modelVersion,omitempty"`
	ArtifactPath *string         `db:"artifact_path" json:"artifactPath,omitempty"`

	ErrorMessage *string `db:"error_message" json:"error,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Route is the origin/destination pair carried by a prediction request.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// PredictionInput is the validated request payload. It is persisted verbatim
// as the prediction's InputJSON and replayed to the remote service.
type PredictionInput struct {
	Currency      string             `json:"currency"`
	VolumeTon     float64            `json:"volumeTon"`
	LeadTimeDays  *int               `json:"leadTimeDays,omitempty"`
	FuelIndex     *float64           `json:"fuelIndex,omitempty"`
	TaxMultiplier *float64           `json:"taxMultiplier,omitempty"`
	Route         Route              `json:"route"`
	FxRates       map[string]float64 `json:"fxRates,omitempty"`
	ModelName     string             `json:"modelName,omitempty"`
}

// Defaults applied when optional request fields are absent.
const (
	DefaultLeadTimeDays  = 30
	DefaultFuelIndex     = 1.0
	DefaultTaxMultiplier = 1.0
	DefaultModelName     = "random_forest"
)

// KnownModels are the model names the remote service can serve.
var KnownModels = []string{
	"linear_regression",
	"linear_regression_sklearn",
	"random_forest",
	"gradient_boosting",
	"mlp",
}

// EffectiveLeadTimeDays returns the requested lead time or the default.
func (in *PredictionInput) EffectiveLeadTimeDays() int {
	if in.LeadTimeDays != nil {
		return *in.LeadTimeDays
	}
	return DefaultLeadTimeDays
}

// EffectiveFuelIndex returns the requested fuel index or the default.
func (in *PredictionInput) EffectiveFuelIndex() float64 {
	if in.FuelIndex != nil {
		return *in.FuelIndex
	}
	return DefaultFuelIndex
}

// EffectiveTaxMultiplier returns the requested tax multiplier or the default.
func (in *PredictionInput) EffectiveTaxMultiplier() float64 {
	if in.TaxMultiplier != nil {
		return *in.TaxMultiplier
	}
	return DefaultTaxMultiplier
}

// EffectiveModelName returns the requested model or the default.
func (in *PredictionInput) EffectiveModelName() string {
	if in.ModelName != "" {
		return in.ModelName
	}
	return DefaultModelName
}

// Completion carries everything a settlement to COMPLETED writes back onto a
// Prediction. EuroPerKg is always derived as costTotal / (volumeTon * 1000)
// by the caller.
type Completion struct {
	CostTotal    float64
	EuroPerKg    float64
	OutputJSON   json.RawMessage
	ModelUsed    string
	ModelVersion string
	ArtifactPath string
}

// Identity is the caller identity yielded by the authentication layer before
// any core operation runs.
type Identity struct {
	UserID string
	Role   string
}

// Elevated reports whether the caller may read records it does not own.
func (id Identity) Elevated() bool {
	return id.Role == "admin"
}
