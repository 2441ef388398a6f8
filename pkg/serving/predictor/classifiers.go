package predictor

import (
	"fmt"
	"math"
	"sort"

	"github.com/synaptica-ai/dependability/pkg/ml/linear"
)

const (
	KindLogistic = "logistic"
	KindTree     = "tree"
	KindKNN      = "knn"
	KindCentroid = "centroid"
	KindForest   = "forest"
	KindVoting   = "voting"

	VotingSoft = "soft"
	VotingHard = "hard"

	WeightingUniform  = "uniform"
	WeightingDistance = "distance"
)

// Classifier maps a scaled feature row to one of its classes.
type Classifier interface {
	Kind() string
	Classes() []string
	Predict(x []float64) string
}

// ProbabilisticClassifier also returns one probability per entry of Classes.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(x []float64) []float64
}

// TreeNode is one CART node. Leaves have Feature == -1 and carry per-class
// sample counts in Value.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// ModelSpec is the persisted form of one registry entry. Only the fields of
// its Kind are populated.
type ModelSpec struct {
	Kind      string   `json:"kind"`
	Classes   []string `json:"classes"`
	NFeatures int      `json:"n_features"`

	Coefficients [][]float64 `json:"coefficients,omitempty"`
	Intercepts   []float64   `json:"intercepts,omitempty"`

	Nodes []TreeNode `json:"nodes,omitempty"`

	Forest [][]TreeNode `json:"forest,omitempty"`

	K         int         `json:"k,omitempty"`
	Weighting string      `json:"weighting,omitempty"`
	Samples   [][]float64 `json:"samples,omitempty"`
	Targets   []int       `json:"targets,omitempty"`

	Centroids [][]float64 `json:"centroids,omitempty"`

	Voting  string    `json:"voting,omitempty"`
	Members []string  `json:"members,omitempty"`
	Weights []float64 `json:"weights,omitempty"`
}

type classSet []string

func (c classSet) Classes() []string {
	return append([]string(nil), c...)
}

type logisticModel struct {
	classSet
	weights linear.Weights
}

func (m *logisticModel) Kind() string { return KindLogistic }

func (m *logisticModel) PredictProba(x []float64) []float64 {
	return linear.Softmax(m.weights, x)
}

func (m *logisticModel) Predict(x []float64) string {
	return m.classSet[linear.Argmax(m.PredictProba(x))]
}

type treeModel struct {
	classSet
	nodes []TreeNode
}

func (m *treeModel) Kind() string { return KindTree }

func (m *treeModel) leaf(x []float64) TreeNode {
	return leafOf(m.nodes, x)
}

func leafOf(nodes []TreeNode, x []float64) TreeNode {
	node := nodes[0]
	for node.Feature >= 0 {
		if x[node.Feature] <= node.Threshold {
			node = nodes[node.Left]
		} else {
			node = nodes[node.Right]
		}
	}
	return node
}

func (m *treeModel) PredictProba(x []float64) []float64 {
	return normalize(m.leaf(x).Value)
}

func (m *treeModel) Predict(x []float64) string {
	return m.classSet[linear.Argmax(m.leaf(x).Value)]
}

// forestModel averages the leaf distributions of its trees.
type forestModel struct {
	classSet
	trees [][]TreeNode
}

func (m *forestModel) Kind() string { return KindForest }

func (m *forestModel) PredictProba(x []float64) []float64 {
	avg := make([]float64, len(m.classSet))
	for _, nodes := range m.trees {
		for k, p := range normalize(leafOf(nodes, x).Value) {
			avg[k] += p
		}
	}
	for k := range avg {
		avg[k] /= float64(len(m.trees))
	}
	return avg
}

func (m *forestModel) Predict(x []float64) string {
	return m.classSet[linear.Argmax(m.PredictProba(x))]
}

type knnModel struct {
	classSet
	k        int
	distance bool
	samples  [][]float64
	targets  []int
}

func (m *knnModel) Kind() string { return KindKNN }

func (m *knnModel) PredictProba(x []float64) []float64 {
	type neighbour struct {
		dist   float64
		target int
	}
	neighbours := make([]neighbour, len(m.samples))
	for i, s := range m.samples {
		neighbours[i] = neighbour{dist: euclidean(s, x), target: m.targets[i]}
	}
	sort.SliceStable(neighbours, func(i, j int) bool { return neighbours[i].dist < neighbours[j].dist })

	k := m.k
	if k > len(neighbours) {
		k = len(neighbours)
	}
	nearest := neighbours[:k]

	votes := make([]float64, len(m.classSet))
	exact := false
	if m.distance {
		for _, n := range nearest {
			if n.dist == 0 {
				votes[n.target]++
				exact = true
			}
		}
	}
	if !exact {
		for _, n := range nearest {
			w := 1.0
			if m.distance {
				w = 1 / n.dist
			}
			votes[n.target] += w
		}
	}
	return normalize(votes)
}

func (m *knnModel) Predict(x []float64) string {
	return m.classSet[linear.Argmax(m.PredictProba(x))]
}

// centroidModel assigns the class of the closest centroid and has no
// probability output.
type centroidModel struct {
	classSet
	centroids [][]float64
}

func (m *centroidModel) Kind() string { return KindCentroid }

func (m *centroidModel) Predict(x []float64) string {
	best, bestDist := 0, math.Inf(1)
	for k, c := range m.centroids {
		if d := euclidean(c, x); d < bestDist {
			best, bestDist = k, d
		}
	}
	return m.classSet[best]
}

type softVotingModel struct {
	classSet
	members []ProbabilisticClassifier
	weights []float64
}

func (m *softVotingModel) Kind() string { return KindVoting }

func (m *softVotingModel) PredictProba(x []float64) []float64 {
	avg := make([]float64, len(m.classSet))
	var total float64
	for i, member := range m.members {
		w := m.weights[i]
		for k, p := range member.PredictProba(x) {
			avg[k] += w * p
		}
		total += w
	}
	for k := range avg {
		avg[k] /= total
	}
	return avg
}

func (m *softVotingModel) Predict(x []float64) string {
	return m.classSet[linear.Argmax(m.PredictProba(x))]
}

// hardVotingModel takes the weighted majority label; ties go to the class
// listed first.
type hardVotingModel struct {
	classSet
	members []Classifier
	weights []float64
	index   map[string]int
}

func (m *hardVotingModel) Kind() string { return KindVoting }

func (m *hardVotingModel) Predict(x []float64) string {
	votes := make([]float64, len(m.classSet))
	for i, member := range m.members {
		votes[m.index[member.Predict(x)]] += m.weights[i]
	}
	return m.classSet[linear.Argmax(votes)]
}

// buildModel turns a spec into a classifier. Voting members are looked up in
// built, which must already contain every non-voting model.
func buildModel(name string, spec ModelSpec, nFeatures int, built map[string]Classifier) (Classifier, error) {
	if len(spec.Classes) == 0 {
		return nil, fmt.Errorf("model %s has no classes", name)
	}
	if spec.NFeatures != nFeatures {
		return nil, fmt.Errorf("model %s expects %d features, bundle has %d", name, spec.NFeatures, nFeatures)
	}
	classes := classSet(append([]string(nil), spec.Classes...))
	nClasses := len(classes)

	switch spec.Kind {
	case KindLogistic:
		if len(spec.Coefficients) != nClasses || len(spec.Intercepts) != nClasses {
			return nil, fmt.Errorf("model %s: logistic needs %d coefficient rows and intercepts", name, nClasses)
		}
		for _, row := range spec.Coefficients {
			if len(row) != nFeatures {
				return nil, fmt.Errorf("model %s: coefficient row has %d entries, want %d", name, len(row), nFeatures)
			}
		}
		return &logisticModel{
			classSet: classes,
			weights:  linear.Weights{Intercepts: spec.Intercepts, Coefficients: spec.Coefficients},
		}, nil

	case KindTree:
		if err := validateTree(spec.Nodes, nClasses, nFeatures); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		return &treeModel{classSet: classes, nodes: spec.Nodes}, nil

	case KindForest:
		if len(spec.Forest) == 0 {
			return nil, fmt.Errorf("model %s: forest has no trees", name)
		}
		for t, nodes := range spec.Forest {
			if err := validateTree(nodes, nClasses, nFeatures); err != nil {
				return nil, fmt.Errorf("model %s: tree %d: %w", name, t, err)
			}
		}
		return &forestModel{classSet: classes, trees: spec.Forest}, nil

	case KindKNN:
		if spec.K <= 0 || len(spec.Samples) == 0 || len(spec.Samples) != len(spec.Targets) {
			return nil, fmt.Errorf("model %s: knn needs k > 0 and one target per sample", name)
		}
		for i, s := range spec.Samples {
			if len(s) != nFeatures {
				return nil, fmt.Errorf("model %s: sample %d has %d features", name, i, len(s))
			}
			if spec.Targets[i] < 0 || spec.Targets[i] >= nClasses {
				return nil, fmt.Errorf("model %s: target %d out of range", name, spec.Targets[i])
			}
		}
		var distance bool
		switch spec.Weighting {
		case "", WeightingUniform:
		case WeightingDistance:
			distance = true
		default:
			return nil, fmt.Errorf("model %s: unknown weighting %q", name, spec.Weighting)
		}
		return &knnModel{classSet: classes, k: spec.K, distance: distance, samples: spec.Samples, targets: spec.Targets}, nil

	case KindCentroid:
		if len(spec.Centroids) != nClasses {
			return nil, fmt.Errorf("model %s: centroid needs one centroid per class", name)
		}
		for _, c := range spec.Centroids {
			if len(c) != nFeatures {
				return nil, fmt.Errorf("model %s: centroid has %d features", name, len(c))
			}
		}
		return &centroidModel{classSet: classes, centroids: spec.Centroids}, nil

	case KindVoting:
		return buildVoting(name, spec, classes, built)
	}
	return nil, fmt.Errorf("model %s: unknown kind %q", name, spec.Kind)
}

// validateTree checks a pre-order node list: children follow their parent and
// every leaf carries one count per class.
func validateTree(nodes []TreeNode, nClasses, nFeatures int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range nodes {
		if n.Feature < 0 {
			if len(n.Value) != nClasses {
				return fmt.Errorf("leaf %d has %d counts, want %d", i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(nodes) || n.Right >= len(nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

func buildVoting(name string, spec ModelSpec, classes classSet, built map[string]Classifier) (Classifier, error) {
	if len(spec.Members) == 0 {
		return nil, fmt.Errorf("model %s: voting has no members", name)
	}
	weights := spec.Weights
	if len(weights) == 0 {
		weights = make([]float64, len(spec.Members))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(spec.Members) {
		return nil, fmt.Errorf("model %s: %d weights for %d members", name, len(weights), len(spec.Members))
	}

	members := make([]Classifier, len(spec.Members))
	for i, memberName := range spec.Members {
		member, ok := built[memberName]
		if !ok {
			return nil, fmt.Errorf("model %s: member %q not in registry", name, memberName)
		}
		members[i] = member
	}

	switch spec.Voting {
	case VotingSoft:
		probabilistic := make([]ProbabilisticClassifier, len(members))
		for i, member := range members {
			p, ok := member.(ProbabilisticClassifier)
			if !ok {
				return nil, fmt.Errorf("model %s: member %q has no probabilities", name, spec.Members[i])
			}
			if !sameClasses(p.Classes(), classes) {
				return nil, fmt.Errorf("model %s: member %q classes %v differ from %v", name, spec.Members[i], p.Classes(), []string(classes))
			}
			probabilistic[i] = p
		}
		return &softVotingModel{classSet: classes, members: probabilistic, weights: weights}, nil

	case VotingHard:
		index := make(map[string]int, len(classes))
		for k, c := range classes {
			index[c] = k
		}
		for i, member := range members {
			for _, c := range member.Classes() {
				if _, ok := index[c]; !ok {
					return nil, fmt.Errorf("model %s: member %q class %q unknown to ensemble", name, spec.Members[i], c)
				}
			}
		}
		return &hardVotingModel{classSet: classes, members: members, weights: weights, index: index}, nil
	}
	return nil, fmt.Errorf("model %s: unknown voting %q", name, spec.Voting)
}

func sameClasses(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range values {
		out[i] = v / sum
	}
	return out
}
