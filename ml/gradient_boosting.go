package ml

import (
	"fmt"
	"math"
)

const TypeGradientBoosting = "gradient_boosting"

// GradientBoosting fits one regression tree per class per round against the
// softmax residuals and sums the shrunken tree outputs into class scores.
type GradientBoosting struct {
	NumTrees     int         `json:"num_trees"`
	LearningRate float64     `json:"learning_rate"`
	MaxDepth     int         `json:"max_depth"`
	NumClasses   int         `json:"num_classes"`
	InitScores   []float64   `json:"init_scores"`
	Rounds       [][]regTree `json:"rounds"`
}

// NewGradientBoosting builds an unfitted booster. Zero values select the
// documented defaults: 100 rounds, learning rate 0.1, depth 5.
func NewGradientBoosting(numTrees int, learningRate float64, maxDepth int) *GradientBoosting {
	if numTrees <= 0 {
		numTrees = 100
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}
	return &GradientBoosting{NumTrees: numTrees, LearningRate: learningRate, MaxDepth: maxDepth}
}

func (g *GradientBoosting) Type() string { return TypeGradientBoosting }

func (g *GradientBoosting) Fit(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return fmt.Errorf("gradient boosting fit: %w", err)
	}
	g.NumClasses = numClasses(labels)
	n := len(features)
	k := g.NumClasses

	// Start from the log class priors.
	g.InitScores = make([]float64, k)
	counts := make([]float64, k)
	for _, y := range labels {
		counts[y]++
	}
	for c := 0; c < k; c++ {
		prior := counts[c] / float64(n)
		if prior <= 0 {
			prior = 1e-9
		}
		g.InitScores[c] = math.Log(prior)
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), g.InitScores...)
	}

	g.Rounds = make([][]regTree, 0, g.NumTrees)
	residuals := make([]float64, n)
	for round := 0; round < g.NumTrees; round++ {
		classTrees := make([]regTree, k)
		for c := 0; c < k; c++ {
			for i := 0; i < n; i++ {
				p := softmax(scores[i])[c]
				target := 0.0
				if labels[i] == c {
					target = 1.0
				}
				residuals[i] = target - p
			}
			tree := growRegTree(features, residuals, 0, g.MaxDepth)
			classTrees[c] = tree
			for i := 0; i < n; i++ {
				scores[i][c] += g.LearningRate * tree.predict(features[i])
			}
		}
		g.Rounds = append(g.Rounds, classTrees)
	}
	return nil
}

func (g *GradientBoosting) PredictProba(features []float64) ([]float64, error) {
	if len(g.Rounds) == 0 {
		return nil, ErrNotFitted
	}
	scores := append([]float64(nil), g.InitScores...)
	for _, classTrees := range g.Rounds {
		for c := range classTrees {
			scores[c] += g.LearningRate * classTrees[c].predict(features)
		}
	}
	return softmax(scores), nil
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	probs := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// regNode is one node of a flattened regression tree fit to residuals.
type regNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type regTree struct {
	Nodes []regNode `json:"nodes"`
}

func growRegTree(features [][]float64, targets []float64, depth, maxDepth int) regTree {
	return regTree{Nodes: buildRegNodes(features, targets, depth, maxDepth)}
}

func buildRegNodes(features [][]float64, targets []float64, depth, maxDepth int) []regNode {
	leaf := func() []regNode {
		return []regNode{{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: mean(targets), IsLeaf: true}}
	}
	if depth >= maxDepth || len(targets) < 2 {
		return leaf()
	}

	bestFeature, threshold, ok := findBestRegSplit(features, targets)
	if !ok {
		return leaf()
	}

	var leftX, rightX [][]float64
	var leftT, rightT []float64
	for i, row := range features {
		if row[bestFeature] <= threshold {
			leftX = append(leftX, row)
			leftT = append(leftT, targets[i])
		} else {
			rightX = append(rightX, row)
			rightT = append(rightT, targets[i])
		}
	}
	if len(leftT) == 0 || len(rightT) == 0 {
		return leaf()
	}

	leftNodes := buildRegNodes(leftX, leftT, depth+1, maxDepth)
	rightNodes := buildRegNodes(rightX, rightT, depth+1, maxDepth)

	// Shift subtree child indices to their final positions in the combined
	// array.
	shiftRegNodes(leftNodes, 1)
	shiftRegNodes(rightNodes, 1+len(leftNodes))

	nodes := make([]regNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, regNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
	})
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func shiftRegNodes(nodes []regNode, offset int) {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
}

func findBestRegSplit(features [][]float64, targets []float64) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestSSE := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		var left, right []float64
		for i, row := range features {
			if row[featureIdx] <= threshold {
				left = append(left, targets[i])
			} else {
				right = append(right, targets[i])
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		sse := sumSquaredError(left) + sumSquaredError(right)
		if sse < bestSSE {
			bestSSE = sse
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (t *regTree) predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0
		}
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sumSquaredError(values []float64) float64 {
	m := mean(values)
	sse := 0.0
	for _, v := range values {
		diff := v - m
		sse += diff * diff
	}
	return sse
}
