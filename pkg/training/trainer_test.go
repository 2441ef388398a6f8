package training

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dependability/pkg/features"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

func TestGenerateDatasetDeterministic(t *testing.T) {
	a := GenerateDataset(200, 7)
	b := GenerateDataset(200, 7)
	assert.Equal(t, a, b)

	c := GenerateDataset(200, 8)
	assert.NotEqual(t, a, c)
}

func TestGenerateDatasetShape(t *testing.T) {
	samples := GenerateDataset(2000, 42)
	require.Len(t, samples, 2000)

	counts := map[string]int{}
	for _, s := range samples {
		counts[s.Label]++
		rec := s.Record

		assert.GreaterOrEqual(t, rec.SpO2, 72.0)
		assert.LessOrEqual(t, rec.SpO2, 100.0)
		assert.GreaterOrEqual(t, rec.HeartRate, 40.0)
		assert.GreaterOrEqual(t, rec.Temperature, 35.5)
		assert.Contains(t, vitals.Postures, rec.CurrentPosture)

		sum := rec.LeftPct + rec.RightPct + rec.SupinePct
		assert.InDelta(t, 100, sum, 0.2)
		assert.GreaterOrEqual(t, rec.LeftPct, 0.0)
		assert.GreaterOrEqual(t, rec.RightPct, 0.0)
	}

	assert.Len(t, counts, 3)
	assert.InDelta(t, 0.40, float64(counts["Low"])/2000, 0.05)
	assert.InDelta(t, 0.35, float64(counts["Moderate"])/2000, 0.05)
	assert.InDelta(t, 0.25, float64(counts["High"])/2000, 0.05)
}

func TestGenerateDatasetHighIsMostlySupine(t *testing.T) {
	for _, s := range GenerateDataset(500, 3) {
		if s.Label == "High" {
			assert.GreaterOrEqual(t, s.Record.SupinePct, 59.9)
		}
	}
}

func TestFitTreeSeparatesClasses(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1}

	nodes := fitTree(x, y, 2, 5, 2)
	require.Len(t, nodes, 3)
	assert.Equal(t, 0, nodes[0].Feature)
	assert.Equal(t, 6.0, nodes[0].Threshold)
	assert.Equal(t, []float64{3, 0}, nodes[nodes[0].Left].Value)
	assert.Equal(t, []float64{0, 3}, nodes[nodes[0].Right].Value)
	for i, n := range nodes {
		if n.Feature >= 0 {
			assert.Greater(t, n.Left, i)
			assert.Greater(t, n.Right, i)
		}
	}
}

func TestFitTreeRespectsDepth(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 1, 0, 1}

	nodes := fitTree(x, y, 2, 0, 2)
	require.Len(t, nodes, 1)
	assert.Equal(t, -1, nodes[0].Feature)
	assert.Equal(t, []float64{2, 2}, nodes[0].Value)
}

func TestFitForestIsSeededAndValid(t *testing.T) {
	x := [][]float64{{0, 5}, {1, 4}, {2, 6}, {10, 5}, {11, 4}, {12, 6}, {1, 5}, {11, 5}}
	y := []int{0, 0, 0, 1, 1, 1, 0, 1}

	forest := fitForest(x, y, 2, 10, 5, 2, 42)
	require.Len(t, forest, 10)
	assert.Equal(t, forest, fitForest(x, y, 2, 10, 5, 2, 42))

	for _, nodes := range forest {
		require.NotEmpty(t, nodes)
		var leafTotal float64
		for i, n := range nodes {
			if n.Feature < 0 {
				require.Len(t, n.Value, 2)
				leafTotal += n.Value[0] + n.Value[1]
				continue
			}
			assert.Less(t, n.Feature, 2)
			assert.Greater(t, n.Left, i)
			assert.Greater(t, n.Right, i)
		}
		// every bootstrap row lands in exactly one leaf
		assert.Equal(t, float64(len(x)), leafTotal)
	}
}

func TestGini(t *testing.T) {
	assert.Zero(t, gini([]float64{5, 0}))
	assert.InDelta(t, 0.5, gini([]float64{2, 2}), 1e-12)
	assert.Zero(t, gini([]float64{0, 0}))
}

func TestTrainProducesLoadableBundle(t *testing.T) {
	samples := GenerateDataset(600, 42)
	bundle, report, err := Train(samples, Options{Seed: 42, Version: "test-v1"})
	require.NoError(t, err)

	assert.Equal(t, 120, report.TestSize)
	assert.Equal(t, 480, report.TrainSize)
	for _, name := range []string{ModelLogistic, ModelTree, ModelForest, ModelKNN, ModelCentroid, predictor.DefaultModel} {
		acc, ok := report.Accuracy[name]
		require.True(t, ok, name)
		assert.GreaterOrEqual(t, acc, 0.0)
		assert.LessOrEqual(t, acc, 1.0)
	}
	assert.Greater(t, report.Accuracy[predictor.DefaultModel], 0.5)
	assert.Len(t, bundle.Models.Models[ModelForest].Forest, 100)

	assert.Equal(t, []string{"Left", "Right", "Supine"}, bundle.Encoder.Classes)
	assert.Equal(t, features.Names, bundle.Features.FeatureNames)

	prefix := filepath.Join(t.TempDir(), "models", "patient_dependability_model")
	require.NoError(t, predictor.SaveBundle(prefix, bundle))

	p, err := predictor.Load(prefix)
	require.NoError(t, err)
	assert.Equal(t, "test-v1", p.Version())
	assert.Equal(t, predictor.DefaultModel, p.DefaultModel())

	v, err := features.Derive(vitals.DefaultRecord(), p.Encoder())
	require.NoError(t, err)
	res, err := p.Predict(v, "")
	require.NoError(t, err)
	assert.Contains(t, predictor.Labels, res.Label)

	var total float64
	for _, pr := range res.Probabilities {
		total += pr
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.False(t, math.IsNaN(total))
}

func TestTrainRejectsTinyDataset(t *testing.T) {
	_, _, err := Train(GenerateDataset(3, 1), Options{})
	assert.Error(t, err)
}
