package ml

import (
	"encoding/json"
	"fmt"
)

// defaultSeed fixes every stochastic step (bootstrap sampling, weight init,
// shuffles) so identical data always yields identical models.
const defaultSeed int64 = 42

// Config carries the per-backend hyperparameters accepted by a training
// request. Zero values mean "use the backend's documented default".
type Config struct {
	ModelType    string  `json:"model_type"`
	NumTrees     int     `json:"n_estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	HiddenLayers []int   `json:"hidden_layers"`
	Epochs       int     `json:"epochs"`
}

// NewClassifier constructs the backend selected by cfg.ModelType.
// Unrecognized tags fall back to the random forest rather than failing.
func NewClassifier(cfg Config) Classifier {
	switch cfg.ModelType {
	case TypeGradientBoosting:
		return NewGradientBoosting(cfg.NumTrees, cfg.LearningRate, cfg.MaxDepth)
	case TypeNeuralNetwork:
		return NewNeuralNetwork(cfg.HiddenLayers, cfg.LearningRate, cfg.Epochs)
	default:
		return NewRandomForest(cfg.NumTrees, cfg.MaxDepth)
	}
}

// CanonicalType resolves a modelType tag to the backend that NewClassifier
// would actually build for it.
func CanonicalType(modelType string) string {
	switch modelType {
	case TypeGradientBoosting, TypeNeuralNetwork:
		return modelType
	default:
		return TypeRandomForest
	}
}

// classifierBlob is the serialized envelope: the backend tag plus its state.
type classifierBlob struct {
	ModelType string          `json:"model_type"`
	State     json.RawMessage `json:"state"`
}

// MarshalClassifier serializes a fitted classifier with its backend tag so
// it can be reconstructed by UnmarshalClassifier.
func MarshalClassifier(c Classifier) ([]byte, error) {
	state, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(classifierBlob{ModelType: c.Type(), State: state})
}

// UnmarshalClassifier reverses MarshalClassifier.
func UnmarshalClassifier(data []byte) (Classifier, error) {
	var blob classifierBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, err
	}
	var c Classifier
	switch blob.ModelType {
	case TypeRandomForest:
		c = &RandomForest{}
	case TypeGradientBoosting:
		c = &GradientBoosting{}
	case TypeNeuralNetwork:
		c = &NeuralNetwork{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", blob.ModelType)
	}
	if err := json.Unmarshal(blob.State, c); err != nil {
		return nil, err
	}
	return c, nil
}
