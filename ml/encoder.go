package ml

import (
	"errors"
	"fmt"
	"sort"
)

// LabelEncoder is a bijection between label strings and dense class indices
// 0..k-1. Classes are ordered by sorted name so the mapping is stable across
// fits on the same label set. The class list is small (one entry per grade),
// so lookups scan linearly and the encoder stays safe for concurrent reads.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

func (e *LabelEncoder) Fitted() bool {
	return len(e.Classes) > 0
}

func (e *LabelEncoder) NumClasses() int {
	return len(e.Classes)
}

func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.New("label encoder fit: labels empty")
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	e.Classes = classes
	return nil
}

func (e *LabelEncoder) Transform(label string) (int, error) {
	if !e.Fitted() {
		return 0, errors.New("label encoder not fitted")
	}
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", label)
}

func (e *LabelEncoder) TransformAll(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, err := e.Transform(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func (e *LabelEncoder) InverseTransform(idx int) (string, error) {
	if !e.Fitted() {
		return "", errors.New("label encoder not fitted")
	}
	if idx < 0 || idx >= len(e.Classes) {
		return "", fmt.Errorf("class index %d out of range", idx)
	}
	return e.Classes[idx], nil
}
