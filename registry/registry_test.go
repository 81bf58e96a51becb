package registry

import (
	"testing"
	"time"

	"academiaml/grading"
	"academiaml/ml"
)

func TestRegistryPutGetDelete(t *testing.T) {
	reg := New()
	if _, ok := reg.Get("quiz-1"); ok {
		t.Fatal("expected empty registry")
	}

	reg.Put("quiz-1", &Entry{
		Classifier: ml.NewRandomForest(5, 3),
		TemplateID: "tpl-1",
		CreatedAt:  time.Now(),
	})
	entry, ok := reg.Get("quiz-1")
	if !ok {
		t.Fatal("expected entry after put")
	}
	if entry.ModelID != "quiz-1" {
		t.Fatalf("expected model id set on put, got %q", entry.ModelID)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", reg.Len())
	}

	if !reg.Delete("quiz-1") {
		t.Fatal("expected delete to succeed")
	}
	if reg.Delete("quiz-1") {
		t.Fatal("expected second delete to fail")
	}
	if _, ok := reg.Get("quiz-1"); ok {
		t.Fatal("expected entry gone after delete")
	}
}

func TestRegistryListOnlyFitted(t *testing.T) {
	reg := New()
	reg.Put("with-model", &Entry{Classifier: ml.NewRandomForest(5, 3)})
	reg.Put("without-model", &Entry{})

	entries := reg.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 listed entry, got %d", len(entries))
	}
	if entries[0].ModelID != "with-model" {
		t.Fatalf("unexpected entry %q", entries[0].ModelID)
	}
}

func TestEnsureDefaultServable(t *testing.T) {
	reg := New()
	entry, err := reg.EnsureDefault("never-trained")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.Bootstrap() {
		t.Fatal("expected bootstrap entry")
	}
	if entry.Accuracy != 0 {
		t.Fatalf("expected zero accuracy, got %f", entry.Accuracy)
	}
	if !entry.Scaler.Fitted() || !entry.Encoder.Fitted() {
		t.Fatal("expected fitted scaler and encoder")
	}
	if entry.Encoder.NumClasses() != len(grading.DefaultClassOrder) {
		t.Fatalf("expected %d classes, got %d", len(grading.DefaultClassOrder), entry.Encoder.NumClasses())
	}

	// The bootstrap model must serve predictions end to end.
	features := grading.ExtractFeatures("some answer", "SHORT_ANSWER", 0.5, "")
	scaled, err := entry.Scaler.Transform(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	classIdx, confidence, err := ml.PredictClass(entry.Classifier, scaled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confidence <= 0 {
		t.Fatal("expected positive confidence")
	}
	if _, err := entry.Encoder.InverseTransform(classIdx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second call returns the stored entry, not a fresh build.
	again, err := reg.EnsureDefault("never-trained")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != entry {
		t.Fatal("expected the same entry on repeat calls")
	}
}

func TestEnsureDefaultDoesNotReplaceTrained(t *testing.T) {
	reg := New()
	trained := &Entry{Classifier: ml.NewRandomForest(5, 3), TemplateID: "tpl-9"}
	reg.Put("quiz-2", trained)

	entry, err := reg.EnsureDefault("quiz-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Bootstrap() {
		t.Fatal("expected existing trained entry to win")
	}
	if entry.TemplateID != "tpl-9" {
		t.Fatalf("unexpected template %q", entry.TemplateID)
	}
}
