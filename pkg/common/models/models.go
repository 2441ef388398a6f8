package models

import (
	"time"

	"github.com/synaptica-ai/dependability/pkg/vitals"
)

// DirectRequest is the structured prediction input. Nil fields take the
// documented defaults.
type DirectRequest struct {
	HeartRate      *float64 `json:"heart_rate,omitempty"`
	SpO2           *float64 `json:"spo2,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	CurrentPosture *string  `json:"current_posture,omitempty"`
	LeftPct        *float64 `json:"left_pct,omitempty"`
	RightPct       *float64 `json:"right_pct,omitempty"`
	SupinePct      *float64 `json:"supine_pct,omitempty"`
	ModelName      string   `json:"model_name,omitempty"`
}

type PredictionResponse struct {
	PredictionID    string             `json:"prediction_id"`
	ModelName       string             `json:"model_name"`
	Prediction      string             `json:"prediction"`
	Probabilities   map[string]float64 `json:"probabilities"`
	InputData       vitals.Record      `json:"input_data"`
	DefaultedFields []string           `json:"defaulted_fields,omitempty"`
	Source          string             `json:"source"` // report, direct
	Cached          bool               `json:"cached,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // dependability.predicted
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// PredictionLogEntry is one persisted prediction as served by the history
// endpoint.
type PredictionLogEntry struct {
	ID            string             `json:"id"`
	ModelName     string             `json:"model_name"`
	ModelVersion  string             `json:"model_version"`
	Prediction    string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
	InputData     vitals.Record      `json:"input_data"`
	Source        string             `json:"source"`
	CreatedAt     time.Time          `json:"created_at"`
}
