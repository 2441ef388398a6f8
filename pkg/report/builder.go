package report

import (
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const (
	FieldHeartRate      = "heart_rate"
	FieldSpO2           = "spo2"
	FieldTemperature    = "temperature"
	FieldCurrentPosture = "current_posture"
	FieldLeftPct        = "left_pct"
	FieldRightPct       = "right_pct"
	FieldSupinePct      = "supine_pct"
)

var allFields = []string{
	FieldHeartRate,
	FieldSpO2,
	FieldTemperature,
	FieldCurrentPosture,
	FieldLeftPct,
	FieldRightPct,
	FieldSupinePct,
}

// Extraction is the outcome of parsing one report.
type Extraction struct {
	Record    vitals.Record `json:"record"`
	Resolved  []string      `json:"resolved"`
	Defaulted []string      `json:"defaulted"`
	Warnings  []error       `json:"-"`
}

// Degraded reports whether any extraction step failed.
func (e Extraction) Degraded() bool {
	return len(e.Warnings) > 0
}

// recordBuilder collects the fields a report actually yields. Missing fields
// are filled from defaults in build.
type recordBuilder struct {
	values   map[string]float64
	posture  *vitals.Posture
	warnings []error
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{values: make(map[string]float64, len(allFields))}
}

func (b *recordBuilder) set(field string, value float64) {
	b.values[field] = value
}

func (b *recordBuilder) setPosture(p vitals.Posture) {
	b.posture = &p
}

func (b *recordBuilder) warn(err error) {
	b.warnings = append(b.warnings, err)
}

func (b *recordBuilder) build() Extraction {
	rec := vitals.DefaultRecord()
	var resolved, defaulted []string

	pick := func(field string, dst *float64) {
		if v, ok := b.values[field]; ok {
			*dst = v
			resolved = append(resolved, field)
			return
		}
		defaulted = append(defaulted, field)
	}

	pick(FieldHeartRate, &rec.HeartRate)
	pick(FieldSpO2, &rec.SpO2)
	pick(FieldTemperature, &rec.Temperature)
	if b.posture != nil {
		rec.CurrentPosture = *b.posture
		resolved = append(resolved, FieldCurrentPosture)
	} else {
		defaulted = append(defaulted, FieldCurrentPosture)
	}
	pick(FieldLeftPct, &rec.LeftPct)
	pick(FieldRightPct, &rec.RightPct)
	pick(FieldSupinePct, &rec.SupinePct)

	rec.LeftPct, rec.RightPct, rec.SupinePct = vitals.RenormalizePostures(rec.LeftPct, rec.RightPct, rec.SupinePct)

	return Extraction{
		Record:    rec,
		Resolved:  resolved,
		Defaulted: defaulted,
		Warnings:  b.warnings,
	}
}
