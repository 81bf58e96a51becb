package ml

import (
	"reflect"
	"testing"
)

func TestNewClassifierSelectsBackend(t *testing.T) {
	if _, ok := NewClassifier(Config{ModelType: TypeRandomForest}).(*RandomForest); !ok {
		t.Fatal("expected random forest")
	}
	if _, ok := NewClassifier(Config{ModelType: TypeGradientBoosting}).(*GradientBoosting); !ok {
		t.Fatal("expected gradient boosting")
	}
	if _, ok := NewClassifier(Config{ModelType: TypeNeuralNetwork}).(*NeuralNetwork); !ok {
		t.Fatal("expected neural network")
	}
	// Unrecognized tags fall back to the forest rather than failing.
	if _, ok := NewClassifier(Config{ModelType: "svm"}).(*RandomForest); !ok {
		t.Fatal("expected fallback to random forest")
	}
}

func TestCanonicalType(t *testing.T) {
	if got := CanonicalType("svm"); got != TypeRandomForest {
		t.Fatalf("expected fallback to %s, got %s", TypeRandomForest, got)
	}
	if got := CanonicalType(TypeNeuralNetwork); got != TypeNeuralNetwork {
		t.Fatalf("expected %s, got %s", TypeNeuralNetwork, got)
	}
}

func TestMarshalClassifierRoundTrip(t *testing.T) {
	features, labels := separableData(10)
	forest := NewRandomForest(10, 3)
	if err := forest.Fit(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob, err := MarshalClassifier(forest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := UnmarshalClassifier(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Type() != TypeRandomForest {
		t.Fatalf("unexpected type %s", restored.Type())
	}

	query := []float64{0.2, 0.3}
	want, err := forest.PredictProba(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := restored.PredictProba(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected identical predictions after round trip:\n%v\n%v", want, got)
	}
}

func TestUnmarshalClassifierUnknownType(t *testing.T) {
	if _, err := UnmarshalClassifier([]byte(`{"model_type":"svm","state":{}}`)); err == nil {
		t.Fatal("expected error for unknown model type")
	}
}
