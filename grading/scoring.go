package grading

import (
	"fmt"
	"math"
)

var scoreMultipliers = map[string]float64{
	LabelCorrect:   1.0,
	LabelPartial:   0.5,
	LabelIncorrect: 0.0,
	LabelSkipped:   0.0,
}

// CalculateScore converts a predicted correctness label into points.
// Unrecognized labels score zero.
func CalculateScore(correctness string, maxPoints float64) float64 {
	multiplier := scoreMultipliers[correctness]
	return math.Round(maxPoints*multiplier*100) / 100
}

// GenerateExplanation produces the human-readable explanation attached to a
// prediction. The template strings are part of the service contract and must
// not change.
func GenerateExplanation(questionType, correctness string, confidence float64) string {
	pct := fmt.Sprintf("%.1f%%", confidence*100)

	switch correctness {
	case LabelSkipped:
		return "No answer detected in this region."
	case LabelCorrect:
		if confidence > 0.9 {
			return fmt.Sprintf("Answer is correct with high confidence (%s). All key elements present.", pct)
		}
		return fmt.Sprintf("Answer appears correct (%s). Most key elements identified.", pct)
	case LabelPartial:
		return fmt.Sprintf("Partial answer detected (%s). Some elements correct but incomplete or partially incorrect.", pct)
	case LabelIncorrect:
		if questionType == "MCQ" {
			return fmt.Sprintf("Selected option does not match expected answer (%s).", pct)
		}
		return fmt.Sprintf("Answer does not match expected criteria (%s). Review recommended.", pct)
	}
	return fmt.Sprintf("Prediction made with %s confidence.", pct)
}
