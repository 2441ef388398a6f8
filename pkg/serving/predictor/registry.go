package predictor

import (
	"fmt"
	"sort"
)

const DefaultModel = "Ensemble"

// Labels is the closed set of dependability levels.
var Labels = []string{"Low", "Moderate", "High"}

func isLabel(s string) bool {
	for _, l := range Labels {
		if l == s {
			return true
		}
	}
	return false
}

// Registry maps model names to classifiers. It is built once and never
// modified, so concurrent lookups need no locking.
type Registry struct {
	models map[string]Classifier
	names  []string
}

// NewRegistry copies models into a frozen registry. Every class must be one of
// Labels.
func NewRegistry(models map[string]Classifier) (*Registry, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("registry has no models")
	}
	frozen := make(map[string]Classifier, len(models))
	names := make([]string, 0, len(models))
	for name, m := range models {
		for _, c := range m.Classes() {
			if !isLabel(c) {
				return nil, fmt.Errorf("model %s has class %q outside %v", name, c, Labels)
			}
		}
		frozen[name] = m
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{models: frozen, names: names}, nil
}

// BuildRegistry compiles model specs. Non-voting models are built first so
// ensembles can refer to them by name.
func BuildRegistry(specs map[string]ModelSpec, nFeatures int) (*Registry, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	built := make(map[string]Classifier, len(specs))
	for _, name := range names {
		if specs[name].Kind == KindVoting {
			continue
		}
		m, err := buildModel(name, specs[name], nFeatures, nil)
		if err != nil {
			return nil, err
		}
		built[name] = m
	}

	base := make(map[string]Classifier, len(built))
	for name, m := range built {
		base[name] = m
	}
	for _, name := range names {
		if specs[name].Kind != KindVoting {
			continue
		}
		m, err := buildModel(name, specs[name], nFeatures, base)
		if err != nil {
			return nil, err
		}
		built[name] = m
	}
	return NewRegistry(built)
}

func (r *Registry) Get(name string) (Classifier, bool) {
	m, ok := r.models[name]
	return m, ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

type ModelInfo struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Classes       []string `json:"classes"`
	Probabilistic bool     `json:"probabilistic"`
}

func (r *Registry) Describe() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.names))
	for _, name := range r.names {
		m := r.models[name]
		_, prob := m.(ProbabilisticClassifier)
		out = append(out, ModelInfo{
			Name:          name,
			Kind:          m.Kind(),
			Classes:       m.Classes(),
			Probabilistic: prob,
		})
	}
	return out
}
