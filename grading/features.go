package grading

import (
	"math"
	"strings"
	"unicode"
)

// FeatureCount is the length of every feature vector produced by ExtractFeatures.
const FeatureCount = 20

const (
	LabelCorrect   = "CORRECT"
	LabelPartial   = "PARTIAL"
	LabelIncorrect = "INCORRECT"
	LabelSkipped   = "SKIPPED"
)

// DefaultClassOrder is the implicit class-index ordering used when a model
// has no fitted label encoder (loaded blobs without an encoder file).
var DefaultClassOrder = []string{LabelCorrect, LabelPartial, LabelIncorrect, LabelSkipped}

var questionTypes = []string{"MCQ", "TRUE_FALSE", "SHORT_ANSWER", "LONG_ANSWER", "NUMERIC", "OTHER"}

// QuestionTypes returns the recognized question type tags in one-hot order.
func QuestionTypes() []string {
	return append([]string(nil), questionTypes...)
}

// FeatureNames returns the feature vector field names in order.
func FeatureNames() []string {
	names := []string{
		"text_length",
		"word_count",
		"avg_word_length",
		"alpha_ratio",
		"digit_ratio",
		"special_ratio",
		"uppercase_ratio",
		"ocr_confidence",
		"similarity_score",
		"has_mcq_answer",
		"has_true_false",
		"is_empty",
		"is_very_short",
		"has_content",
	}
	for _, qt := range questionTypes {
		names = append(names, "question_type_"+strings.ToLower(qt))
	}
	return names
}

// ExtractFeatures maps an answer text plus question context to a fixed
// 20-dimensional numeric vector. It is pure and total: any input, including
// empty text or an unrecognized question type, yields a well-defined vector.
// expectedAnswer may be empty when no reference answer exists.
func ExtractFeatures(text, questionType string, ocrConfidence float64, expectedAnswer string) []float64 {
	normalized := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(normalized)

	runes := []rune(text)
	textLength := math.Min(float64(len(runes))/500, 1)
	wordCount := math.Min(float64(len(words))/100, 1)

	totalWordLen := 0
	for _, w := range words {
		totalWordLen += len([]rune(w))
	}
	avgWordLength := float64(totalWordLen) / math.Max(float64(len(words)), 1) / 10

	var alphaCount, digitCount, specialCount, upperCount int
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			alphaCount++
		case unicode.IsDigit(r):
			digitCount++
		case !unicode.IsSpace(r):
			specialCount++
		}
		if unicode.IsUpper(r) {
			upperCount++
		}
	}
	textLen := math.Max(float64(len(runes)), 1)

	similarity := similarityScore(normalized, expectedAnswer)

	hasMcqAnswer := boolFeature(normalized == "a" || normalized == "b" || normalized == "c" || normalized == "d")
	hasTrueFalse := boolFeature(normalized == "true" || normalized == "false" || normalized == "t" || normalized == "f")

	trimmedLen := len([]rune(strings.TrimSpace(text)))
	isEmpty := boolFeature(trimmedLen == 0)
	isVeryShort := boolFeature(trimmedLen < 5)
	hasContent := boolFeature(trimmedLen >= 10)

	features := []float64{
		textLength,
		wordCount,
		avgWordLength,
		float64(alphaCount) / textLen,
		float64(digitCount) / textLen,
		float64(specialCount) / textLen,
		float64(upperCount) / textLen,
		ocrConfidence,
		similarity,
		hasMcqAnswer,
		hasTrueFalse,
		isEmpty,
		isVeryShort,
		hasContent,
	}
	for _, qt := range questionTypes {
		features = append(features, boolFeature(qt == questionType))
	}
	return features
}

// similarityScore is the Jaccard similarity between the whitespace token sets
// of the normalized answer text and the lower-cased expected answer.
func similarityScore(normalizedText, expectedAnswer string) float64 {
	if expectedAnswer == "" {
		return 0
	}
	expectedWords := tokenSet(strings.ToLower(expectedAnswer))
	textWords := tokenSet(normalizedText)
	if len(expectedWords) == 0 && len(textWords) == 0 {
		return 0
	}
	intersection := 0
	union := len(textWords)
	for w := range expectedWords {
		if _, ok := textWords[w]; ok {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / math.Max(float64(union), 1)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
