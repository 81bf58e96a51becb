package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler standardizes features to zero mean and unit variance using
// statistics fit on the training set. Constant features keep a scale of 1 so
// transforming never divides by zero.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0
}

func (s *StandardScaler) Fit(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("scaler fit: features empty")
	}
	d := len(features[0])
	s.Mean = make([]float64, d)
	s.Std = make([]float64, d)

	for _, row := range features {
		if len(row) != d {
			return errors.New("scaler fit: ragged feature matrix")
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(features))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range features {
		for j, v := range row {
			diff := v - s.Mean[j]
			s.Std[j] += diff * diff
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, errors.New("scaler not fitted")
	}
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("scaler transform: expected %d features, got %d", len(s.Mean), len(features))
	}
	out := make([]float64, len(features))
	for j, v := range features {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

func (s *StandardScaler) TransformAll(features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i, row := range features {
		transformed, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}
