package training

import (
	"math"
	"math/rand"

	"github.com/synaptica-ai/dependability/pkg/vitals"
)

// Sample is one labelled synthetic patient.
type Sample struct {
	Record vitals.Record `json:"record"`
	Label  string        `json:"dependability"`
}

var (
	labelPriors = []float64{0.4, 0.35, 0.25}
	labelOrder  = []string{"Low", "Moderate", "High"}
)

type generator struct {
	rng *rand.Rand
}

func (g generator) normal(mean, sd float64) float64 {
	return mean + sd*g.rng.NormFloat64()
}

func (g generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

func (g generator) choice(p []float64) int {
	u := g.rng.Float64()
	var acc float64
	for i, w := range p {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(p) - 1
}

func (g generator) posture(p []float64) vitals.Posture {
	return vitals.Postures[g.choice(p)]
}

// GenerateDataset draws n labelled patients. The same seed always yields the
// same dataset.
func GenerateDataset(n int, seed int64) []Sample {
	g := generator{rng: rand.New(rand.NewSource(seed))}
	out := make([]Sample, 0, n)

	for i := 0; i < n; i++ {
		label := labelOrder[g.choice(labelPriors)]
		var rec vitals.Record

		switch label {
		case "Low":
			rec.HeartRate = g.normal(72, 8)
			rec.SpO2 = g.normal(97, 2)
			rec.Temperature = g.normal(36.8, 0.4)
			rec.LeftPct = g.uniform(25, 40)
			rec.RightPct = g.uniform(25, 40)
			rec.SupinePct = 100 - rec.LeftPct - rec.RightPct
			rec.CurrentPosture = g.posture([]float64{0.35, 0.35, 0.3})
		case "Moderate":
			rec.HeartRate = g.normal(78, 12)
			rec.SpO2 = g.normal(94, 3)
			rec.Temperature = g.normal(37.1, 0.5)
			rec.LeftPct = g.uniform(20, 35)
			rec.RightPct = g.uniform(20, 35)
			rec.SupinePct = 100 - rec.LeftPct - rec.RightPct
			rec.CurrentPosture = g.posture([]float64{0.3, 0.3, 0.4})
		default:
			rec.HeartRate = g.normal(85, 15)
			rec.SpO2 = g.normal(91, 4)
			rec.Temperature = g.normal(37.3, 0.6)
			rec.SupinePct = g.uniform(60, 85)
			remaining := 100 - rec.SupinePct
			rec.LeftPct = g.uniform(0, remaining)
			rec.RightPct = remaining - rec.LeftPct
			rec.CurrentPosture = g.posture([]float64{0.15, 0.15, 0.7})
		}

		rec.HeartRate = clamp(rec.HeartRate, 40, 150)
		rec.SpO2 = clamp(rec.SpO2, 80, 100)
		rec.Temperature = clamp(rec.Temperature, 35.5, 39.5)
		rec.LeftPct, rec.RightPct, rec.SupinePct = vitals.RenormalizePostures(rec.LeftPct, rec.RightPct, rec.SupinePct)

		if g.rng.Float64() < 0.1 {
			switch {
			case label == "High":
				rec.HeartRate += g.uniform(10, 30)
				rec.SpO2 -= g.uniform(3, 8)
			case label == "Low" && g.rng.Float64() < 0.3:
				rec.Temperature += g.uniform(0.5, 1.5)
			}
		}

		rec.HeartRate = round(rec.HeartRate, 1)
		rec.SpO2 = round(rec.SpO2, 1)
		rec.Temperature = round(rec.Temperature, 2)
		rec.LeftPct = round(rec.LeftPct, 1)
		rec.RightPct = round(rec.RightPct, 1)
		rec.SupinePct = round(rec.SupinePct, 1)

		out = append(out, Sample{Record: rec, Label: label})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
