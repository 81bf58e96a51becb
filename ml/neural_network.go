package ml

import (
	"fmt"
	"math"
	"math/rand"
)

const TypeNeuralNetwork = "neural_network"

// NeuralNetwork is a shallow fully connected classifier: ReLU hidden layers,
// softmax output, cross-entropy loss, per-sample SGD.
type NeuralNetwork struct {
	HiddenSizes  []int   `json:"hidden_sizes"`
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	Seed         int64   `json:"seed"`
	NumClasses   int     `json:"num_classes"`

	// Weights[l][out][in] and Biases[l][out] for each dense layer.
	Weights [][][]float64 `json:"weights"`
	Biases  [][]float64   `json:"biases"`
}

// NewNeuralNetwork builds an unfitted network. Zero values select the
// documented defaults: hidden layers (64, 32), learning rate 0.001,
// 200 epochs.
func NewNeuralNetwork(hiddenSizes []int, learningRate float64, epochs int) *NeuralNetwork {
	if len(hiddenSizes) == 0 {
		hiddenSizes = []int{64, 32}
	}
	if learningRate <= 0 {
		learningRate = 0.001
	}
	if epochs <= 0 {
		epochs = 200
	}
	return &NeuralNetwork{
		HiddenSizes:  append([]int(nil), hiddenSizes...),
		LearningRate: learningRate,
		Epochs:       epochs,
		Seed:         defaultSeed,
	}
}

func (n *NeuralNetwork) Type() string { return TypeNeuralNetwork }

func (n *NeuralNetwork) Fit(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return fmt.Errorf("neural network fit: %w", err)
	}
	n.NumClasses = numClasses(labels)
	inputSize := len(features[0])

	sizes := append([]int{inputSize}, n.HiddenSizes...)
	sizes = append(sizes, n.NumClasses)

	rng := rand.New(rand.NewSource(n.Seed))
	n.Weights = make([][][]float64, len(sizes)-1)
	n.Biases = make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2.0 / float64(in))
		n.Weights[l] = make([][]float64, out)
		n.Biases[l] = make([]float64, out)
		for o := 0; o < out; o++ {
			n.Weights[l][o] = make([]float64, in)
			for i := 0; i < in; i++ {
				n.Weights[l][o][i] = rng.NormFloat64() * scale
			}
		}
	}

	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < n.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, idx := range order {
			n.trainSample(features[idx], labels[idx])
		}
	}
	return nil
}

func (n *NeuralNetwork) trainSample(input []float64, label int) {
	activations, preacts := n.forward(input)
	layers := len(n.Weights)

	// Output delta for softmax + cross-entropy is (p - onehot).
	output := activations[layers]
	delta := make([]float64, len(output))
	copy(delta, output)
	delta[label]--

	for l := layers - 1; l >= 0; l-- {
		prev := activations[l]
		var nextDelta []float64
		if l > 0 {
			nextDelta = make([]float64, len(prev))
		}
		for o := range n.Weights[l] {
			for i := range n.Weights[l][o] {
				if nextDelta != nil {
					nextDelta[i] += delta[o] * n.Weights[l][o][i]
				}
				n.Weights[l][o][i] -= n.LearningRate * delta[o] * prev[i]
			}
			n.Biases[l][o] -= n.LearningRate * delta[o]
		}
		if l > 0 {
			for i := range nextDelta {
				if preacts[l-1][i] <= 0 {
					nextDelta[i] = 0
				}
			}
			delta = nextDelta
		}
	}
}

// forward returns per-layer activations (index 0 is the input) and the
// pre-activation values of the hidden layers.
func (n *NeuralNetwork) forward(input []float64) ([][]float64, [][]float64) {
	layers := len(n.Weights)
	activations := make([][]float64, layers+1)
	preacts := make([][]float64, layers)
	activations[0] = input

	current := input
	for l := 0; l < layers; l++ {
		out := make([]float64, len(n.Weights[l]))
		for o := range n.Weights[l] {
			sum := n.Biases[l][o]
			for i, w := range n.Weights[l][o] {
				sum += w * current[i]
			}
			out[o] = sum
		}
		preacts[l] = out
		if l < layers-1 {
			activated := make([]float64, len(out))
			for i, v := range out {
				if v > 0 {
					activated[i] = v
				}
			}
			activations[l+1] = activated
			current = activated
		} else {
			activations[l+1] = softmax(out)
		}
	}
	return activations, preacts
}

func (n *NeuralNetwork) PredictProba(features []float64) ([]float64, error) {
	if len(n.Weights) == 0 {
		return nil, ErrNotFitted
	}
	if len(features) != len(n.Weights[0][0]) {
		return nil, fmt.Errorf("expected %d features, got %d", len(n.Weights[0][0]), len(features))
	}
	activations, _ := n.forward(features)
	return activations[len(activations)-1], nil
}
