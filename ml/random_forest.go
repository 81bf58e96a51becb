package ml

import (
	"fmt"
	"math"
	"math/rand"
)

const TypeRandomForest = "random_forest"

// RandomForest is a bagged ensemble of probability-leaf decision trees.
// Each tree fits a bootstrap sample and considers a random sqrt(d) feature
// subset at every split; predicted probabilities are the tree average.
type RandomForest struct {
	NumTrees   int         `json:"num_trees"`
	MaxDepth   int         `json:"max_depth"`
	Seed       int64       `json:"seed"`
	NumClasses int         `json:"num_classes"`
	Trees      []classTree `json:"trees"`
}

// NewRandomForest builds an unfitted forest. Zero values select the
// documented defaults: 100 trees, depth 10.
func NewRandomForest(numTrees, maxDepth int) *RandomForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &RandomForest{NumTrees: numTrees, MaxDepth: maxDepth, Seed: defaultSeed}
}

func (f *RandomForest) Type() string { return TypeRandomForest }

func (f *RandomForest) Fit(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return fmt.Errorf("random forest fit: %w", err)
	}
	f.NumClasses = numClasses(labels)

	n := len(features)
	d := len(features[0])
	maxFeatures := int(math.Sqrt(float64(d)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]classTree, 0, f.NumTrees)
	for t := 0; t < f.NumTrees; t++ {
		sampleX := make([][]float64, n)
		sampleY := make([]int, n)
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleX[i] = features[j]
			sampleY[i] = labels[j]
		}
		tree := growClassTree(sampleX, sampleY, treeParams{
			maxDepth:    f.MaxDepth,
			maxFeatures: maxFeatures,
			numClasses:  f.NumClasses,
			rng:         rng,
		})
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	probs := make([]float64, f.NumClasses)
	for i := range f.Trees {
		treeProbs, err := f.Trees[i].predictProba(features)
		if err != nil {
			return nil, err
		}
		for c := range probs {
			if c < len(treeProbs) {
				probs[c] += treeProbs[c]
			}
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}
