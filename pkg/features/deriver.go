package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const (
	HeartRate             = "heart_rate"
	SpO2                  = "spo2"
	Temperature           = "temperature"
	CurrentPostureEncoded = "current_posture_encoded"
	LeftPosturePct        = "left_posture_pct"
	RightPosturePct       = "right_posture_pct"
	SupinePosturePct      = "supine_posture_pct"
	HRSpO2Ratio           = "hr_spo2_ratio"
	TempDeviation         = "temp_deviation"
	PostureMobilityScore  = "posture_mobility_score"
	VitalStabilityScore   = "vital_stability_score"
)

const (
	referenceTemperature = 37.0
	referenceHeartRate   = 72.0
	heartRateSpread      = 20.0
)

// Names is the feature order models are trained on.
var Names = []string{
	HeartRate,
	SpO2,
	Temperature,
	CurrentPostureEncoded,
	LeftPosturePct,
	RightPosturePct,
	SupinePosturePct,
	HRSpO2Ratio,
	TempDeviation,
	PostureMobilityScore,
	VitalStabilityScore,
}

// Vector holds the raw fields plus every derived feature for one record.
type Vector struct {
	HeartRate             float64 `json:"heart_rate"`
	SpO2                  float64 `json:"spo2"`
	Temperature           float64 `json:"temperature"`
	CurrentPosture        string  `json:"current_posture"`
	CurrentPostureEncoded int     `json:"current_posture_encoded"`
	LeftPosturePct        float64 `json:"left_posture_pct"`
	RightPosturePct       float64 `json:"right_posture_pct"`
	SupinePosturePct      float64 `json:"supine_posture_pct"`
	HRSpO2Ratio           float64 `json:"hr_spo2_ratio"`
	TempDeviation         float64 `json:"temp_deviation"`
	PostureMobilityScore  float64 `json:"posture_mobility_score"`
	VitalStabilityScore   float64 `json:"vital_stability_score"`
}

// InvalidFeatureError is returned when a record produces a feature no model
// can score, such as the heart rate ratio of a zero SpO2 reading.
type InvalidFeatureError struct {
	Feature string
	Value   float64
}

func (e *InvalidFeatureError) Error() string {
	return fmt.Sprintf("feature %s is not finite (%v)", e.Feature, e.Value)
}

func IsInvalidFeature(err error) bool {
	var fe *InvalidFeatureError
	return errors.As(err, &fe)
}

// Derive computes the feature vector for rec. Training and serving both go
// through this function.
func Derive(rec vitals.Record, enc *PostureEncoder) (Vector, error) {
	code, err := enc.Encode(rec.CurrentPosture)
	if err != nil {
		return Vector{}, err
	}

	tempDeviation := math.Abs(rec.Temperature - referenceTemperature)
	v := Vector{
		HeartRate:             rec.HeartRate,
		SpO2:                  rec.SpO2,
		Temperature:           rec.Temperature,
		CurrentPosture:        string(rec.CurrentPosture),
		CurrentPostureEncoded: code,
		LeftPosturePct:        rec.LeftPct,
		RightPosturePct:       rec.RightPct,
		SupinePosturePct:      rec.SupinePct,
		HRSpO2Ratio:           rec.HeartRate / rec.SpO2,
		TempDeviation:         tempDeviation,
		PostureMobilityScore:  (rec.LeftPct + rec.RightPct) / 100,
		VitalStabilityScore:   1 / (1 + tempDeviation + math.Abs(rec.HeartRate-referenceHeartRate)/heartRateSpread),
	}
	for _, name := range Names {
		value, _ := v.Value(name)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return Vector{}, &InvalidFeatureError{Feature: name, Value: value}
		}
	}
	return v, nil
}

func (v Vector) Value(name string) (float64, bool) {
	switch name {
	case HeartRate:
		return v.HeartRate, true
	case SpO2:
		return v.SpO2, true
	case Temperature:
		return v.Temperature, true
	case CurrentPostureEncoded:
		return float64(v.CurrentPostureEncoded), true
	case LeftPosturePct:
		return v.LeftPosturePct, true
	case RightPosturePct:
		return v.RightPosturePct, true
	case SupinePosturePct:
		return v.SupinePosturePct, true
	case HRSpO2Ratio:
		return v.HRSpO2Ratio, true
	case TempDeviation:
		return v.TempDeviation, true
	case PostureMobilityScore:
		return v.PostureMobilityScore, true
	case VitalStabilityScore:
		return v.VitalStabilityScore, true
	}
	return 0, false
}

// Values lays the vector out in the given feature order.
func (v Vector) Values(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		value, ok := v.Value(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature %s", name)
		}
		out[i] = value
	}
	return out, nil
}

// Map is used when a vector is logged or persisted.
func (v Vector) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(Names)+1)
	for _, name := range Names {
		value, _ := v.Value(name)
		out[name] = value
	}
	out["current_posture"] = v.CurrentPosture
	return out
}

// SameOrder reports whether names is exactly the training feature order.
func SameOrder(names []string) bool {
	if len(names) != len(Names) {
		return false
	}
	for i := range names {
		if names[i] != Names[i] {
			return false
		}
	}
	return true
}
