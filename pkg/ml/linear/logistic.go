package linear

import "math"

type Options struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

// Weights is a multinomial logistic model: one coefficient row and one
// intercept per class.
type Weights struct {
	Intercepts   []float64   `json:"intercepts"`
	Coefficients [][]float64 `json:"coefficients"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

// TrainSoftmax fits a multinomial logistic regression with batch gradient
// descent. labels holds class indices in [0, classes).
func TrainSoftmax(samples [][]float64, labels []int, classes int, opts Options) (Weights, Metrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 500
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}

	n := len(samples)
	if n == 0 || classes <= 0 {
		return Weights{}, Metrics{}
	}
	featureCount := len(samples[0])
	weights := Weights{
		Intercepts:   make([]float64, classes),
		Coefficients: make([][]float64, classes),
	}
	for k := range weights.Coefficients {
		weights.Coefficients[k] = make([]float64, featureCount)
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grad := make([][]float64, classes)
		for k := range grad {
			grad[k] = make([]float64, featureCount)
		}
		biasGrad := make([]float64, classes)

		for i, sample := range samples {
			probs := Softmax(weights, sample)
			for k := 0; k < classes; k++ {
				target := 0.0
				if labels[i] == k {
					target = 1
				}
				diff := probs[k] - target
				for j := 0; j < featureCount; j++ {
					grad[k][j] += diff * sample[j]
				}
				biasGrad[k] += diff
			}
		}

		for k := 0; k < classes; k++ {
			for j := 0; j < featureCount; j++ {
				g := grad[k][j]/float64(n) + opts.L2*weights.Coefficients[k][j]
				weights.Coefficients[k][j] -= opts.LearningRate * g
			}
			weights.Intercepts[k] -= opts.LearningRate * biasGrad[k] / float64(n)
		}
	}

	return weights, evaluate(weights, samples, labels)
}

// Softmax returns the class probabilities for one sample.
func Softmax(weights Weights, sample []float64) []float64 {
	scores := make([]float64, len(weights.Coefficients))
	maxScore := math.Inf(-1)
	for k, row := range weights.Coefficients {
		scores[k] = dot(row, sample) + weights.Intercepts[k]
		if scores[k] > maxScore {
			maxScore = scores[k]
		}
	}
	var sum float64
	for k := range scores {
		scores[k] = math.Exp(scores[k] - maxScore)
		sum += scores[k]
	}
	for k := range scores {
		scores[k] /= sum
	}
	return scores
}

// Argmax returns the first index holding the largest value.
func Argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func evaluate(weights Weights, samples [][]float64, labels []int) Metrics {
	var loss float64
	var correct int
	for i, sample := range samples {
		probs := Softmax(weights, sample)
		loss += -math.Log(probs[labels[i]] + 1e-9)
		if Argmax(probs) == labels[i] {
			correct++
		}
	}
	return Metrics{
		Loss:     loss / float64(len(samples)),
		Accuracy: float64(correct) / float64(len(samples)),
	}
}
