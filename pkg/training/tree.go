package training

import (
	"math"
	"math/rand"
	"sort"

	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
)

// treeBuilder grows a CART classifier with gini impurity. Nodes are stored in
// pre-order, so children always follow their parent. When maxFeatures is set,
// each split only considers that many randomly drawn features.
type treeBuilder struct {
	x           [][]float64
	y           []int
	classes     int
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	nodes       []predictor.TreeNode
}

func fitTree(x [][]float64, y []int, classes, maxDepth, minSplit int) []predictor.TreeNode {
	b := &treeBuilder{x: x, y: y, classes: classes, maxDepth: maxDepth, minSplit: minSplit}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	b.grow(idx, 0)
	return b.nodes
}

// fitForest grows n trees, each on a bootstrap sample of the rows and with
// sqrt(features) candidates per split.
func fitForest(x [][]float64, y []int, classes, n, maxDepth, minSplit int, seed int64) [][]predictor.TreeNode {
	rng := rand.New(rand.NewSource(seed))
	maxFeatures := int(math.Sqrt(float64(len(x[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	forest := make([][]predictor.TreeNode, n)
	for t := range forest {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		b := &treeBuilder{
			x:           x,
			y:           y,
			classes:     classes,
			maxDepth:    maxDepth,
			minSplit:    minSplit,
			maxFeatures: maxFeatures,
			rng:         rng,
		}
		b.grow(idx, 0)
		forest[t] = b.nodes
	}
	return forest
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.counts(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, predictor.TreeNode{Feature: -1, Value: counts})

	if depth >= b.maxDepth || len(idx) < b.minSplit || gini(counts) == 0 {
		return id
	}
	feature, threshold, ok := b.bestSplit(idx, gini(counts))
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Value = nil
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.classes)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *treeBuilder) bestSplit(idx []int, parent float64) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	bestScore := parent
	n := float64(len(idx))
	features := len(b.x[idx[0]])

	candidates := make([]int, features)
	for f := range candidates {
		candidates[f] = f
	}
	if b.maxFeatures > 0 && b.maxFeatures < features {
		candidates = b.rng.Perm(features)[:b.maxFeatures]
	}

	sorted := make([]int, len(idx))
	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		left := make([]float64, b.classes)
		right := b.counts(sorted)
		for pos := 0; pos < len(sorted)-1; pos++ {
			cls := b.y[sorted[pos]]
			left[cls]++
			right[cls]--

			cur, next := b.x[sorted[pos]][f], b.x[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			nl := float64(pos + 1)
			score := (nl*gini(left) + (n-nl)*gini(right)) / n
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts []float64) float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}
