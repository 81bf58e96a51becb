package ml

import (
	"math"
	"testing"
)

func TestStandardScalerFitTransform(t *testing.T) {
	features := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	}
	scaler := &StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scaler.Fitted() {
		t.Fatal("expected scaler to be fitted")
	}

	scaled, err := scaler.TransformAll(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := range scaled {
			sum += scaled[i][j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("expected zero mean for column %d, got %f", j, sum/3)
		}
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	features := [][]float64{
		{5, 1},
		{5, 2},
		{5, 3},
	}
	scaler := &StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := scaler.Transform([]float64{5, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("expected constant column to transform to 0, got %f", out[0])
	}
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := &StandardScaler{}
	if err := scaler.Fit(nil); err == nil {
		t.Fatal("expected error for empty fit")
	}
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Fatal("expected error for unfitted transform")
	}

	if err := scaler.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}
