package grading

import "testing"

func TestCalculateScore(t *testing.T) {
	cases := []struct {
		correctness string
		maxPoints   float64
		want        float64
	}{
		{LabelCorrect, 10, 10},
		{LabelPartial, 10, 5},
		{LabelPartial, 5, 2.5},
		{LabelIncorrect, 10, 0},
		{LabelSkipped, 10, 0},
		{"UNKNOWN", 10, 0},
		{LabelPartial, 3.333, 1.67},
	}
	for _, tc := range cases {
		got := CalculateScore(tc.correctness, tc.maxPoints)
		if got != tc.want {
			t.Fatalf("CalculateScore(%s, %v): expected %v, got %v", tc.correctness, tc.maxPoints, tc.want, got)
		}
	}
}

func TestGenerateExplanationCorrect(t *testing.T) {
	got := GenerateExplanation("SHORT_ANSWER", LabelCorrect, 0.95)
	want := "Answer is correct with high confidence (95.0%). All key elements present."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = GenerateExplanation("SHORT_ANSWER", LabelCorrect, 0.8)
	want = "Answer appears correct (80.0%). Most key elements identified."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	// 0.9 exactly is not "high confidence".
	got = GenerateExplanation("SHORT_ANSWER", LabelCorrect, 0.9)
	want = "Answer appears correct (90.0%). Most key elements identified."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGenerateExplanationPartial(t *testing.T) {
	got := GenerateExplanation("LONG_ANSWER", LabelPartial, 0.62)
	want := "Partial answer detected (62.0%). Some elements correct but incomplete or partially incorrect."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGenerateExplanationIncorrect(t *testing.T) {
	got := GenerateExplanation("MCQ", LabelIncorrect, 0.88)
	want := "Selected option does not match expected answer (88.0%)."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = GenerateExplanation("SHORT_ANSWER", LabelIncorrect, 0.88)
	want = "Answer does not match expected criteria (88.0%). Review recommended."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGenerateExplanationSkipped(t *testing.T) {
	got := GenerateExplanation("MCQ", LabelSkipped, 0.99)
	want := "No answer detected in this region."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGenerateExplanationUnknownLabel(t *testing.T) {
	got := GenerateExplanation("MCQ", "MAYBE", 0.5)
	want := "Prediction made with 50.0% confidence."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
