package training

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/features"
	"github.com/synaptica-ai/dependability/pkg/ml/linear"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const (
	ModelLogistic = "Logistic Regression"
	ModelTree     = "Decision Tree"
	ModelForest   = "Random Forest"
	ModelKNN      = "KNN"
	ModelCentroid = "Nearest Centroid"
)

type Options struct {
	Seed         int64
	TestFraction float64
	Neighbours   int
	TreeMaxDepth int
	TreeMinSplit int
	ForestTrees  int
	ForestDepth  int
	Logistic     linear.Options
	Version      string
}

func (o Options) withDefaults() Options {
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.2
	}
	if o.Neighbours <= 0 {
		o.Neighbours = 7
	}
	if o.TreeMaxDepth <= 0 {
		o.TreeMaxDepth = 10
	}
	if o.TreeMinSplit <= 0 {
		o.TreeMinSplit = 20
	}
	if o.ForestTrees <= 0 {
		o.ForestTrees = 100
	}
	if o.ForestDepth <= 0 {
		o.ForestDepth = 15
	}
	if o.Version == "" {
		o.Version = uuid.NewString()
	}
	return o
}

// Report holds held-out accuracy per model.
type Report struct {
	Version   string             `json:"version"`
	TrainSize int                `json:"train_size"`
	TestSize  int                `json:"test_size"`
	Accuracy  map[string]float64 `json:"accuracy"`
}

// Train fits every model on samples and returns the artifact bundle together
// with a held-out accuracy report.
func Train(samples []Sample, opts Options) (*predictor.Bundle, Report, error) {
	opts = opts.withDefaults()
	if len(samples) < 10 {
		return nil, Report{}, fmt.Errorf("need at least 10 samples, got %d", len(samples))
	}

	postures := make([]vitals.Posture, len(samples))
	for i, s := range samples {
		postures[i] = s.Record.CurrentPosture
	}
	encoder, err := features.FitPostureEncoder(postures)
	if err != nil {
		return nil, Report{}, fmt.Errorf("fit posture encoder: %w", err)
	}

	vectors := make([]features.Vector, len(samples))
	rows := make([][]float64, len(samples))
	for i, s := range samples {
		v, err := features.Derive(s.Record, encoder)
		if err != nil {
			return nil, Report{}, fmt.Errorf("derive sample %d: %w", i, err)
		}
		vectors[i] = v
		if rows[i], err = v.Values(features.Names); err != nil {
			return nil, Report{}, err
		}
	}

	classes := classesOf(samples)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	order := rand.New(rand.NewSource(opts.Seed)).Perm(len(samples))
	testSize := int(float64(len(samples)) * opts.TestFraction)
	if testSize < 1 {
		testSize = 1
	}
	testIdx, trainIdx := order[:testSize], order[testSize:]

	trainRows := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for i, idx := range trainIdx {
		trainRows[i] = rows[idx]
		trainY[i] = classIndex[samples[idx].Label]
	}

	scaler, err := predictor.FitScaler(features.Names, trainRows)
	if err != nil {
		return nil, Report{}, fmt.Errorf("fit scaler: %w", err)
	}
	scaled := make([][]float64, len(trainRows))
	for i, r := range trainRows {
		scaled[i] = scaler.Transform(r)
	}

	nFeatures := len(features.Names)
	weights, fit := linear.TrainSoftmax(scaled, trainY, len(classes), opts.Logistic)
	logger.WithFields(logrus.Fields{
		"model":    ModelLogistic,
		"loss":     fit.Loss,
		"accuracy": fit.Accuracy,
	}).Debug("logistic regression fitted")

	specs := map[string]predictor.ModelSpec{
		ModelLogistic: {
			Kind:         predictor.KindLogistic,
			Classes:      classes,
			NFeatures:    nFeatures,
			Coefficients: weights.Coefficients,
			Intercepts:   weights.Intercepts,
		},
		ModelTree: {
			Kind:      predictor.KindTree,
			Classes:   classes,
			NFeatures: nFeatures,
			Nodes:     fitTree(scaled, trainY, len(classes), opts.TreeMaxDepth, opts.TreeMinSplit),
		},
		ModelForest: {
			Kind:      predictor.KindForest,
			Classes:   classes,
			NFeatures: nFeatures,
			Forest:    fitForest(scaled, trainY, len(classes), opts.ForestTrees, opts.ForestDepth, 2, opts.Seed),
		},
		ModelKNN: {
			Kind:      predictor.KindKNN,
			Classes:   classes,
			NFeatures: nFeatures,
			K:         opts.Neighbours,
			Weighting: predictor.WeightingDistance,
			Samples:   scaled,
			Targets:   trainY,
		},
		ModelCentroid: {
			Kind:      predictor.KindCentroid,
			Classes:   classes,
			NFeatures: nFeatures,
			Centroids: centroids(scaled, trainY, len(classes)),
		},
		predictor.DefaultModel: {
			Kind:      predictor.KindVoting,
			Classes:   classes,
			NFeatures: nFeatures,
			Voting:    predictor.VotingSoft,
			Members:   []string{ModelLogistic, ModelTree, ModelKNN},
		},
	}

	bundle := &predictor.Bundle{
		Manifest: predictor.Manifest{
			Version:      opts.Version,
			Labels:       append([]string(nil), predictor.Labels...),
			DefaultModel: predictor.DefaultModel,
			CreatedAt:    time.Now().UTC(),
		},
		Models:   predictor.ModelsBlob{Version: opts.Version, Models: specs},
		Scaler:   predictor.ScalerBlob{Version: opts.Version, FeatureNames: scaler.FeatureNames(), Mean: scaler.Mean(), Scale: scaler.Scale()},
		Encoder:  predictor.EncoderBlob{Version: opts.Version, Classes: encoder.Classes()},
		Features: predictor.FeaturesBlob{Version: opts.Version, FeatureNames: append([]string(nil), features.Names...)},
	}

	p, err := predictor.FromBundle(bundle)
	if err != nil {
		return nil, Report{}, fmt.Errorf("compile trained bundle: %w", err)
	}

	report := Report{
		Version:   opts.Version,
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
		Accuracy:  make(map[string]float64, len(specs)),
	}
	for _, info := range p.Models() {
		correct := 0
		for _, idx := range testIdx {
			res, err := p.Predict(vectors[idx], info.Name)
			if err != nil {
				return nil, Report{}, fmt.Errorf("evaluate %s: %w", info.Name, err)
			}
			if res.Label == samples[idx].Label {
				correct++
			}
		}
		report.Accuracy[info.Name] = float64(correct) / float64(len(testIdx))
	}
	return bundle, report, nil
}

func classesOf(samples []Sample) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range samples {
		if !seen[s.Label] {
			seen[s.Label] = true
			out = append(out, s.Label)
		}
	}
	sort.Strings(out)
	return out
}

func centroids(x [][]float64, y []int, classes int) [][]float64 {
	out := make([][]float64, classes)
	counts := make([]float64, classes)
	for k := range out {
		out[k] = make([]float64, len(x[0]))
	}
	for i, row := range x {
		counts[y[i]]++
		for j, v := range row {
			out[y[i]][j] += v
		}
	}
	for k := range out {
		if counts[k] == 0 {
			continue
		}
		for j := range out[k] {
			out[k][j] /= counts[k]
		}
	}
	return out
}
