package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	manifestSuffix = "_manifest.yaml"
	modelsSuffix   = "_models.json"
	scalerSuffix   = "_scaler.json"
	encoderSuffix  = "_posture_encoder.json"
	featuresSuffix = "_features.json"
)

type Manifest struct {
	Version      string    `yaml:"version"`
	Labels       []string  `yaml:"labels"`
	DefaultModel string    `yaml:"default_model"`
	CreatedAt    time.Time `yaml:"created_at"`
}

type ModelsBlob struct {
	Version string               `json:"version"`
	Models  map[string]ModelSpec `json:"models"`
}

type ScalerBlob struct {
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

type EncoderBlob struct {
	Version string   `json:"version"`
	Classes []string `json:"classes"`
}

type FeaturesBlob struct {
	Version      string   `json:"version"`
	FeatureNames []string `json:"feature_names"`
}

// Bundle is the full set of artifacts one training run produces.
type Bundle struct {
	Manifest Manifest
	Models   ModelsBlob
	Scaler   ScalerBlob
	Encoder  EncoderBlob
	Features FeaturesBlob
}

// ArtifactPaths lists the files that make up the bundle at prefix.
func ArtifactPaths(prefix string) []string {
	return []string{
		prefix + manifestSuffix,
		prefix + modelsSuffix,
		prefix + scalerSuffix,
		prefix + encoderSuffix,
		prefix + featuresSuffix,
	}
}

// LoadBundle reads every artifact at prefix. Missing or unparseable files
// and version mismatches are reported as IntegrityError.
func LoadBundle(prefix string) (*Bundle, error) {
	var b Bundle

	manifestPath := prefix + manifestSuffix
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &IntegrityError{Artifact: manifestPath, Err: err}
	}
	if err := yaml.Unmarshal(content, &b.Manifest); err != nil {
		return nil, &IntegrityError{Artifact: manifestPath, Err: err}
	}
	if b.Manifest.Version == "" {
		return nil, integrity(manifestPath, "missing version")
	}

	if err := readJSON(prefix+modelsSuffix, &b.Models); err != nil {
		return nil, err
	}
	if err := readJSON(prefix+scalerSuffix, &b.Scaler); err != nil {
		return nil, err
	}
	if err := readJSON(prefix+encoderSuffix, &b.Encoder); err != nil {
		return nil, err
	}
	if err := readJSON(prefix+featuresSuffix, &b.Features); err != nil {
		return nil, err
	}

	versions := map[string]string{
		prefix + modelsSuffix:   b.Models.Version,
		prefix + scalerSuffix:   b.Scaler.Version,
		prefix + encoderSuffix:  b.Encoder.Version,
		prefix + featuresSuffix: b.Features.Version,
	}
	for path, version := range versions {
		if version != b.Manifest.Version {
			return nil, integrity(path, "version %q does not match manifest version %q", version, b.Manifest.Version)
		}
	}
	return &b, nil
}

// SaveBundle writes the bundle next to prefix, creating the directory.
func SaveBundle(prefix string, b *Bundle) error {
	if dir := filepath.Dir(prefix); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	manifest, err := yaml.Marshal(b.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(prefix+manifestSuffix, manifest, 0o644); err != nil {
		return err
	}

	blobs := map[string]interface{}{
		prefix + modelsSuffix:   b.Models,
		prefix + scalerSuffix:   b.Scaler,
		prefix + encoderSuffix:  b.Encoder,
		prefix + featuresSuffix: b.Features,
	}
	for path, blob := range blobs {
		payload, err := json.MarshalIndent(blob, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func readJSON(path string, dst interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &IntegrityError{Artifact: path, Err: err}
	}
	if err := json.Unmarshal(content, dst); err != nil {
		return &IntegrityError{Artifact: path, Err: err}
	}
	return nil
}
