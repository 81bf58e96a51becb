package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a flattened decision tree. Leaves carry the class
// probability distribution observed at fit time.
type treeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Probs      []float64 `json:"probs,omitempty"`
	IsLeaf     bool      `json:"is_leaf"`
}

type classTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeParams struct {
	maxDepth    int
	maxFeatures int // 0 means consider all features at every split
	minSamples  int
	numClasses  int
	rng         *rand.Rand
}

func growClassTree(features [][]float64, labels []int, p treeParams) classTree {
	if p.minSamples < 2 {
		p.minSamples = 2
	}
	return classTree{Nodes: buildTreeNodes(features, labels, 0, p)}
}

func buildTreeNodes(features [][]float64, labels []int, depth int, p treeParams) []treeNode {
	leaf := func() []treeNode {
		return []treeNode{{
			FeatureIdx: -1,
			LeftChild:  -1,
			RightChild: -1,
			Probs:      classDistribution(labels, p.numClasses),
			IsLeaf:     true,
		}}
	}

	if depth >= p.maxDepth || len(labels) < p.minSamples || isPure(labels) {
		return leaf()
	}

	bestFeature, threshold, ok := findBestSplit(features, labels, p)
	if !ok {
		return leaf()
	}

	leftX, leftY, rightX, rightY := splitSamples(features, labels, bestFeature, threshold)
	if len(leftY) == 0 || len(rightY) == 0 {
		return leaf()
	}

	leftNodes := buildTreeNodes(leftX, leftY, depth+1, p)
	rightNodes := buildTreeNodes(rightX, rightY, depth+1, p)

	// Child indices inside each subtree are relative to the subtree slice;
	// shift them to their final positions in the combined array.
	shiftTreeNodes(leftNodes, 1)
	shiftTreeNodes(rightNodes, 1+len(leftNodes))

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, treeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
	})
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func shiftTreeNodes(nodes []treeNode, offset int) {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
}

func (t *classTree) predictProba(features []float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Probs, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// findBestSplit evaluates the median threshold of each candidate feature and
// keeps the one with the lowest weighted gini impurity.
func findBestSplit(features [][]float64, labels []int, p treeParams) (int, float64, bool) {
	featureCount := len(features[0])
	candidates := candidateFeatures(featureCount, p)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func candidateFeatures(featureCount int, p treeParams) []int {
	if p.maxFeatures <= 0 || p.maxFeatures >= featureCount || p.rng == nil {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return p.rng.Perm(featureCount)[:p.maxFeatures]
}

func splitSamples(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftX, rightX [][]float64
	var leftY, rightY []int
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, labels[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, labels[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	var left, right []int
	for i, row := range features {
		if row[featureIdx] <= threshold {
			left = append(left, labels[i])
		} else {
			right = append(right, labels[i])
		}
	}
	return left, right
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func classDistribution(labels []int, k int) []float64 {
	probs := make([]float64, k)
	if len(labels) == 0 {
		return probs
	}
	for _, label := range labels {
		if label < k {
			probs[label]++
		}
	}
	for i := range probs {
		probs[i] /= float64(len(labels))
	}
	return probs
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
