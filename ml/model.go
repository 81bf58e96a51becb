package ml

import "errors"

var (
	// ErrNotFitted is returned when predicting with an unfitted classifier.
	ErrNotFitted = errors.New("classifier not fitted")
	// ErrEmptyTrainingSet is returned by Fit when no rows are supplied.
	ErrEmptyTrainingSet = errors.New("features or labels empty")
)

// Classifier is the capability shared by all grading model backends.
// Fit trains on a feature matrix and dense class indices; PredictProba
// returns one probability per class index, summing to 1.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	PredictProba(features []float64) ([]float64, error)
	Type() string
}

// PredictClass returns the argmax class index and its probability.
func PredictClass(c Classifier, features []float64) (int, float64, error) {
	probs, err := c.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best, probs[best], nil
}

func validateTrainingSet(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	for _, l := range labels {
		if l < 0 {
			return errors.New("negative class index")
		}
	}
	return nil
}

func numClasses(labels []int) int {
	max := 0
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	return max + 1
}
