package vitals

import (
	"math"
	"strconv"
)

type Posture string

const (
	PostureLeft   Posture = "Left"
	PostureRight  Posture = "Right"
	PostureSupine Posture = "Supine"
)

// Postures lists the known sleep positions in keyword precedence order.
var Postures = []Posture{PostureLeft, PostureRight, PostureSupine}

const (
	DefaultHeartRate   = 75.0
	DefaultSpO2        = 96.0
	DefaultTemperature = 36.8
	DefaultPosture     = PostureSupine
	DefaultLeftPct     = 30.0
	DefaultRightPct    = 30.0
	DefaultSupinePct   = 40.0
)

// Record is one patient's vitals and sleep-posture distribution.
type Record struct {
	HeartRate      float64 `json:"heart_rate"`
	SpO2           float64 `json:"spo2"`
	Temperature    float64 `json:"temperature"`
	CurrentPosture Posture `json:"current_posture"`
	LeftPct        float64 `json:"left_pct"`
	RightPct       float64 `json:"right_pct"`
	SupinePct      float64 `json:"supine_pct"`
}

func DefaultRecord() Record {
	return Record{
		HeartRate:      DefaultHeartRate,
		SpO2:           DefaultSpO2,
		Temperature:    DefaultTemperature,
		CurrentPosture: DefaultPosture,
		LeftPct:        DefaultLeftPct,
		RightPct:       DefaultRightPct,
		SupinePct:      DefaultSupinePct,
	}
}

// Normalize applies the temperature correction and rescales the posture
// shares so they sum to 100.
func (r Record) Normalize() Record {
	r.Temperature = NormalizeTemperature(r.Temperature)
	r.LeftPct, r.RightPct, r.SupinePct = RenormalizePostures(r.LeftPct, r.RightPct, r.SupinePct)
	return r
}

// Rounded returns a copy with the posture shares rounded to one decimal.
func (r Record) Rounded() Record {
	r.LeftPct = Round1(r.LeftPct)
	r.RightPct = Round1(r.RightPct)
	r.SupinePct = Round1(r.SupinePct)
	return r
}

// RenormalizePostures rescales the three shares to sum to exactly 100.
// A zero (or negative) total leaves the values untouched.
func RenormalizePostures(left, right, supine float64) (float64, float64, float64) {
	total := left + right + supine
	if total <= 0 {
		return left, right, supine
	}
	return left * 100 / total, right * 100 / total, supine * 100 / total
}

// Round1 rounds to one decimal place, half to even on the exact binary value,
// so 36.25 becomes 36.2 and 36.75 becomes 36.8.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return out
}

// Validate rejects records no sensor report could produce: non-finite vitals
// and negative posture shares.
func (r Record) Validate() error {
	fields := []struct {
		name  string
		value float64
		share bool
	}{
		{"heart_rate", r.HeartRate, false},
		{"spo2", r.SpO2, false},
		{"temperature", r.Temperature, false},
		{"left_pct", r.LeftPct, true},
		{"right_pct", r.RightPct, true},
		{"supine_pct", r.SupinePct, true},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &InvalidValueError{Field: f.name, Value: f.value, Reason: "must be finite"}
		}
		if f.share && f.value < 0 {
			return &InvalidValueError{Field: f.name, Value: f.value, Reason: "must not be negative"}
		}
	}
	return nil
}
