package ml

import (
	"reflect"
	"testing"
)

func TestLabelEncoderRoundTrip(t *testing.T) {
	encoder := &LabelEncoder{}
	labels := []string{"PARTIAL", "CORRECT", "INCORRECT", "CORRECT", "SKIPPED"}
	if err := encoder.Fit(labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"CORRECT", "INCORRECT", "PARTIAL", "SKIPPED"}
	if !reflect.DeepEqual(encoder.Classes, want) {
		t.Fatalf("expected sorted classes %v, got %v", want, encoder.Classes)
	}
	if encoder.NumClasses() != 4 {
		t.Fatalf("expected 4 classes, got %d", encoder.NumClasses())
	}

	for _, label := range want {
		idx, err := encoder.Transform(label)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		back, err := encoder.InverseTransform(idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back != label {
			t.Fatalf("expected round trip %s, got %s", label, back)
		}
	}
}

func TestLabelEncoderStableAcrossFits(t *testing.T) {
	first := &LabelEncoder{}
	second := &LabelEncoder{}
	if err := first.Fit([]string{"CORRECT", "INCORRECT", "PARTIAL"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := second.Fit([]string{"PARTIAL", "PARTIAL", "INCORRECT", "CORRECT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Classes, second.Classes) {
		t.Fatalf("expected identical mappings, got %v and %v", first.Classes, second.Classes)
	}
}

func TestLabelEncoderErrors(t *testing.T) {
	encoder := &LabelEncoder{}
	if err := encoder.Fit(nil); err == nil {
		t.Fatal("expected error for empty fit")
	}
	if _, err := encoder.Transform("CORRECT"); err == nil {
		t.Fatal("expected error for unfitted transform")
	}

	if err := encoder.Fit([]string{"CORRECT", "INCORRECT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := encoder.Transform("MAYBE"); err == nil {
		t.Fatal("expected error for unknown label")
	}
	if _, err := encoder.InverseTransform(7); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
