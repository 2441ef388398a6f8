package predictor

import (
	"errors"
	"fmt"
	"math"
)

// Scaler standardises features to zero mean and unit variance using the
// parameters fitted at training time.
type Scaler struct {
	featureNames []string
	mean         []float64
	scale        []float64
}

func NewScaler(featureNames []string, mean, scale []float64) (*Scaler, error) {
	if len(featureNames) == 0 {
		return nil, errors.New("scaler has no features")
	}
	if len(mean) != len(featureNames) || len(scale) != len(featureNames) {
		return nil, fmt.Errorf("scaler expects %d features, has %d means and %d scales", len(featureNames), len(mean), len(scale))
	}
	for i, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("scaler has invalid scale %v for %s", s, featureNames[i])
		}
	}
	return &Scaler{
		featureNames: append([]string(nil), featureNames...),
		mean:         append([]float64(nil), mean...),
		scale:        append([]float64(nil), scale...),
	}, nil
}

// FitScaler computes per-feature mean and population standard deviation.
// Constant features get a scale of 1.
func FitScaler(featureNames []string, samples [][]float64) (*Scaler, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to fit scaler")
	}
	d := len(featureNames)
	mean := make([]float64, d)
	scale := make([]float64, d)
	for _, s := range samples {
		if len(s) != d {
			return nil, fmt.Errorf("sample has %d features, expected %d", len(s), d)
		}
		for j, v := range s {
			mean[j] += v
		}
	}
	n := float64(len(samples))
	for j := range mean {
		mean[j] /= n
	}
	for _, s := range samples {
		for j, v := range s {
			diff := v - mean[j]
			scale[j] += diff * diff
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return NewScaler(featureNames, mean, scale)
}

func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out
}

func (s *Scaler) FeatureNames() []string {
	return append([]string(nil), s.featureNames...)
}

func (s *Scaler) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

func (s *Scaler) Scale() []float64 {
	return append([]float64(nil), s.scale...)
}
