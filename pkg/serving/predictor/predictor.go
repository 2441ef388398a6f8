package predictor

import (
	"fmt"

	"github.com/synaptica-ai/dependability/pkg/features"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

// Artifacts are the fitted pieces a Predictor is assembled from.
type Artifacts struct {
	Version      string
	Registry     *Registry
	Scaler       *Scaler
	Encoder      *features.PostureEncoder
	FeatureNames []string
	DefaultModel string
}

// Result is the outcome of one classification.
type Result struct {
	Model         string             `json:"model_name"`
	Label         string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Predictor classifies feature vectors against a fixed registry. All of its
// state is read-only after New returns.
type Predictor struct {
	version      string
	registry     *Registry
	scaler       *Scaler
	encoder      *features.PostureEncoder
	featureNames []string
	defaultModel string
}

// New validates that the artifacts agree with each other and with the
// feature derivation.
func New(a Artifacts) (*Predictor, error) {
	if a.Registry == nil || a.Scaler == nil || a.Encoder == nil {
		return nil, integrity("bundle", "registry, scaler and encoder are required")
	}
	if !features.SameOrder(a.FeatureNames) {
		return nil, integrity("features", "feature names %v do not match derived features %v", a.FeatureNames, features.Names)
	}
	scalerNames := a.Scaler.FeatureNames()
	if len(scalerNames) != len(a.FeatureNames) {
		return nil, integrity("scaler", "scaler has %d features, expected %d", len(scalerNames), len(a.FeatureNames))
	}
	for i := range scalerNames {
		if scalerNames[i] != a.FeatureNames[i] {
			return nil, integrity("scaler", "feature %d is %q, expected %q", i, scalerNames[i], a.FeatureNames[i])
		}
	}
	defaultModel := a.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if _, ok := a.Registry.Get(defaultModel); !ok {
		return nil, integrity("models", "default model %q not in registry", defaultModel)
	}

	return &Predictor{
		version:      a.Version,
		registry:     a.Registry,
		scaler:       a.Scaler,
		encoder:      a.Encoder,
		featureNames: append([]string(nil), a.FeatureNames...),
		defaultModel: defaultModel,
	}, nil
}

// FromBundle compiles a loaded bundle into a Predictor.
func FromBundle(b *Bundle) (*Predictor, error) {
	if !sameClasses(b.Manifest.Labels, Labels) {
		return nil, integrity("manifest", "labels %v, expected %v", b.Manifest.Labels, Labels)
	}
	if !sameClasses(b.Features.FeatureNames, b.Scaler.FeatureNames) {
		return nil, integrity("features", "feature list %v differs from scaler %v", b.Features.FeatureNames, b.Scaler.FeatureNames)
	}

	encoder, err := features.NewPostureEncoder(b.Encoder.Classes)
	if err != nil {
		return nil, &IntegrityError{Artifact: "posture_encoder", Err: err}
	}
	if err := checkEncoderClasses(encoder.Classes()); err != nil {
		return nil, &IntegrityError{Artifact: "posture_encoder", Err: err}
	}

	scaler, err := NewScaler(b.Scaler.FeatureNames, b.Scaler.Mean, b.Scaler.Scale)
	if err != nil {
		return nil, &IntegrityError{Artifact: "scaler", Err: err}
	}

	registry, err := BuildRegistry(b.Models.Models, len(b.Features.FeatureNames))
	if err != nil {
		return nil, &IntegrityError{Artifact: "models", Err: err}
	}

	return New(Artifacts{
		Version:      b.Manifest.Version,
		Registry:     registry,
		Scaler:       scaler,
		Encoder:      encoder,
		FeatureNames: b.Features.FeatureNames,
		DefaultModel: b.Manifest.DefaultModel,
	})
}

// Load reads the bundle at prefix and builds a Predictor from it.
func Load(prefix string) (*Predictor, error) {
	b, err := LoadBundle(prefix)
	if err != nil {
		return nil, err
	}
	return FromBundle(b)
}

// Predict classifies v with the named model, or the default model when name
// is empty. Models without probability support report the predicted label
// with probability 1.
func (p *Predictor) Predict(v features.Vector, name string) (Result, error) {
	if name == "" {
		name = p.defaultModel
	}
	model, ok := p.registry.Get(name)
	if !ok {
		return Result{}, &UnknownModelError{Name: name, Known: p.registry.Names()}
	}

	raw, err := v.Values(p.featureNames)
	if err != nil {
		return Result{}, fmt.Errorf("assemble features: %w", err)
	}
	x := p.scaler.Transform(raw)

	label := model.Predict(x)
	probabilities := map[string]float64{label: 1.0}
	if prob, ok := model.(ProbabilisticClassifier); ok {
		classes := prob.Classes()
		probabilities = make(map[string]float64, len(classes))
		for i, pr := range prob.PredictProba(x) {
			probabilities[classes[i]] = pr
		}
	}

	return Result{Model: name, Label: label, Probabilities: probabilities}, nil
}

// HasModel reports whether name (or the default, when empty) is registered.
func (p *Predictor) HasModel(name string) bool {
	if name == "" {
		name = p.defaultModel
	}
	_, ok := p.registry.Get(name)
	return ok
}

// UnknownModel builds the error Predict would return for name.
func (p *Predictor) UnknownModel(name string) error {
	return &UnknownModelError{Name: name, Known: p.registry.Names()}
}

func (p *Predictor) Encoder() *features.PostureEncoder {
	return p.encoder
}

func (p *Predictor) DefaultModel() string {
	return p.defaultModel
}

func (p *Predictor) Version() string {
	return p.version
}

func (p *Predictor) Models() []ModelInfo {
	return p.registry.Describe()
}

func checkEncoderClasses(classes []string) error {
	known := make(map[string]bool, len(vitals.Postures))
	for _, p := range vitals.Postures {
		known[string(p)] = true
	}
	if len(classes) != len(known) {
		return fmt.Errorf("encoder classes %v, expected %v", classes, vitals.Postures)
	}
	for _, c := range classes {
		if !known[c] {
			return fmt.Errorf("encoder class %q is not a known posture", c)
		}
	}
	return nil
}
