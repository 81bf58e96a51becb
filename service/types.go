package service

import (
	"errors"
	"time"

	"academiaml/db"
	"academiaml/ml"
)

var (
	// ErrInsufficientData is returned when a training set has fewer than
	// MinTrainingExamples rows. Callers must supply more data; there is no
	// retry.
	ErrInsufficientData = errors.New("at least 10 training samples required")
	// ErrModelNotFound is returned by delete/save for unknown model ids.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelFileNotFound is returned by load when the model blob is absent.
	ErrModelFileNotFound = errors.New("model file not found")
)

// MinTrainingExamples is the smallest training set the orchestrator accepts.
const MinTrainingExamples = 10

// ReviewThreshold is the confidence below which a prediction is flagged for
// human review.
const ReviewThreshold = 0.75

// TrainingExample is one labeled answer. Score is recorded for future
// augmentation and carried through to the audit log; no backend consumes it
// yet.
type TrainingExample struct {
	Text           string  `json:"text"`
	QuestionType   string  `json:"question_type"`
	ExpectedAnswer string  `json:"expected_answer,omitempty"`
	Label          string  `json:"label"`
	Score          float64 `json:"score"`
}

// TrainingConfig selects the classifier backend and its hyperparameters.
// Zero values mean documented defaults (random forest, validation split 0.2).
type TrainingConfig struct {
	ml.Config
	ValidationSplit float64 `json:"validation_split"`
}

type TrainingResult struct {
	ModelID             string  `json:"model_id"`
	Accuracy            float64 `json:"accuracy"`
	ValidationAccuracy  float64 `json:"validation_accuracy"`
	ConfusionMatrix     [][]int `json:"confusion_matrix"`
	TrainingTimeSeconds float64 `json:"training_time_seconds"`
}

// OCRData carries the OCR engine's output metadata for a region. Confidence
// is optional; absent means 0.5.
type OCRData struct {
	Confidence *float64 `json:"confidence,omitempty"`
}

type PredictionRequest struct {
	ModelID        string  `json:"model_id"`
	RegionID       string  `json:"region_id"`
	Text           string  `json:"text"`
	OCRData        OCRData `json:"ocr_data"`
	QuestionType   string  `json:"question_type"`
	ExpectedAnswer string  `json:"expected_answer,omitempty"`
	// MaxPoints defaults to 10 when zero.
	MaxPoints float64 `json:"max_points"`
}

type PredictionResult struct {
	RegionID             string  `json:"region_id"`
	PredictedCorrectness string  `json:"predicted_correctness"`
	Confidence           float64 `json:"confidence"`
	AssignedScore        float64 `json:"assigned_score"`
	Explanation          string  `json:"explanation"`
	NeedsReview          bool    `json:"needs_review"`
	InferenceTimeMs      float64 `json:"inference_time_ms"`
}

type ModelInfo struct {
	ModelID    string  `json:"model_id"`
	TemplateID string  `json:"template_id"`
	Accuracy   float64 `json:"accuracy"`
	CreatedAt  string  `json:"created_at"`
	ModelType  string  `json:"model_type"`
}

type Stats struct {
	ModelCount         int              `json:"model_count"`
	Predictions        int64            `json:"predictions"`
	Trainings          int64            `json:"trainings"`
	CacheHits          int64            `json:"cache_hits"`
	AvgInferenceMs     float64          `json:"avg_inference_ms"`
	UptimeSeconds      float64          `json:"uptime_seconds"`
	PredictionsLogged  int64            `json:"predictions_logged"`
	PredictionsFlagged int64            `json:"predictions_flagged"`
	RecentTrainingRuns []db.TrainingRun `json:"recent_training_runs,omitempty"`
}

// Event types published to the event sink after state changes.
const (
	EventPrediction   = "prediction"
	EventModelTrained = "model_trained"
	EventModelDeleted = "model_deleted"
	EventModelSaved   = "model_saved"
	EventModelLoaded  = "model_loaded"
)

type Event struct {
	Type      string      `json:"type"`
	ModelID   string      `json:"model_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// EventSink receives grading events. Publish must not block the caller for
// long; slow consumers should drop.
type EventSink interface {
	Publish(event Event)
}
