// Package service implements the grading core around the model registry:
// training, inference, model lifecycle and persistence. The HTTP layer is a
// thin caller of this package.
package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"academiaml/db"
	"academiaml/grading"
	"academiaml/ml"
	"academiaml/registry"
)

// splitSeed fixes the train/validation shuffle so repeated training on
// identical data is reproducible.
const splitSeed int64 = 42

// trainingOCRConfidence is assumed for labeled examples, which come from
// clean transcriptions rather than raw OCR output.
const trainingOCRConfidence = 0.8

// Options configures optional service collaborators.
type Options struct {
	// CacheSize is the prediction LRU capacity; 0 means 1024, negative
	// disables caching.
	CacheSize int
	// Events receives grading events; nil disables publishing.
	Events EventSink
}

type Service struct {
	registry *registry.Registry
	store    *db.Store // nil disables the audit trail
	logger   *zap.Logger
	events   EventSink
	cache    *lru.Cache[string, PredictionResult]

	startedAt time.Time

	mu           sync.Mutex
	predictions  int64
	trainings    int64
	cacheHits    int64
	totalInferMs float64
}

func New(reg *registry.Registry, store *db.Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		registry:  reg,
		store:     store,
		logger:    logger,
		events:    opts.Events,
		startedAt: time.Now(),
	}
	size := opts.CacheSize
	if size == 0 {
		size = 1024
	}
	if size > 0 {
		cache, err := lru.New[string, PredictionResult](size)
		if err == nil {
			s.cache = cache
		}
	}
	return s
}

// Train fits a complete pipeline (encoder, scaler, classifier) on the given
// examples and atomically replaces the registry entry for modelID. The
// registry lock is only taken for the final swap; all heavy work happens
// off-registry.
func (s *Service) Train(ctx context.Context, modelID, templateID string, examples []TrainingExample, cfg TrainingConfig) (TrainingResult, error) {
	start := time.Now()

	if len(examples) < MinTrainingExamples {
		return TrainingResult{}, fmt.Errorf("%w (got %d)", ErrInsufficientData, len(examples))
	}

	features := make([][]float64, len(examples))
	labels := make([]string, len(examples))
	meanScore := 0.0
	for i, ex := range examples {
		features[i] = grading.ExtractFeatures(ex.Text, ex.QuestionType, trainingOCRConfidence, ex.ExpectedAnswer)
		labels[i] = ex.Label
		meanScore += ex.Score
	}
	meanScore /= float64(len(examples))

	encoder := &ml.LabelEncoder{}
	if err := encoder.Fit(labels); err != nil {
		return TrainingResult{}, fmt.Errorf("fit label encoder: %w", err)
	}
	y, err := encoder.TransformAll(labels)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("encode labels: %w", err)
	}

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		return TrainingResult{}, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(features)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("scale features: %w", err)
	}

	trainX, trainY, valX, valY := splitDataset(scaled, y, cfg.ValidationSplit)

	modelType := ml.CanonicalType(cfg.ModelType)
	if cfg.ModelType != "" && cfg.ModelType != modelType {
		s.logger.Warn("unrecognized model type, using default backend",
			zap.String("requested", cfg.ModelType), zap.String("using", modelType))
	}
	classifier := ml.NewClassifier(cfg.Config)

	if err := ctx.Err(); err != nil {
		return TrainingResult{}, err
	}
	if err := classifier.Fit(trainX, trainY); err != nil {
		return TrainingResult{}, fmt.Errorf("training failed: %w", err)
	}

	trainAccuracy, err := accuracy(classifier, trainX, trainY)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("evaluate training set: %w", err)
	}
	valAccuracy, matrix, err := validate(classifier, valX, valY, encoder.NumClasses())
	if err != nil {
		return TrainingResult{}, fmt.Errorf("evaluate validation set: %w", err)
	}

	entry := &registry.Entry{
		Classifier: classifier,
		Scaler:     scaler,
		Encoder:    encoder,
		TemplateID: templateID,
		ModelType:  modelType,
		Accuracy:   valAccuracy,
		CreatedAt:  time.Now().UTC(),
	}
	s.registry.Put(modelID, entry)

	elapsed := time.Since(start)
	s.logger.Info("model trained",
		zap.String("model_id", modelID),
		zap.String("model_type", modelType),
		zap.Int("examples", len(examples)),
		zap.Float64("accuracy", trainAccuracy),
		zap.Float64("validation_accuracy", valAccuracy),
		zap.Duration("elapsed", elapsed))

	if s.store != nil {
		run := db.TrainingRun{
			ModelID:            modelID,
			TemplateID:         templateID,
			ModelType:          modelType,
			Accuracy:           trainAccuracy,
			ValidationAccuracy: valAccuracy,
			DataPoints:         len(examples),
			MeanScore:          meanScore,
			DurationSeconds:    elapsed.Seconds(),
			TrainedAt:          entry.CreatedAt,
		}
		if err := s.store.LogTrainingRun(run); err != nil {
			s.logger.Warn("failed to log training run", zap.Error(err))
		}
	}

	result := TrainingResult{
		ModelID:             modelID,
		Accuracy:            trainAccuracy,
		ValidationAccuracy:  valAccuracy,
		ConfusionMatrix:     matrix,
		TrainingTimeSeconds: round2(elapsed.Seconds()),
	}
	s.publish(EventModelTrained, modelID, result)
	s.countTraining()
	return result, nil
}

// ListModels returns metadata for every registry entry holding a fitted
// classifier, sorted by model id.
func (s *Service) ListModels() []ModelInfo {
	entries := s.registry.List()
	infos := make([]ModelInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, ModelInfo{
			ModelID:    entry.ModelID,
			TemplateID: entry.TemplateID,
			Accuracy:   entry.Accuracy,
			CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339),
			ModelType:  entry.ModelType,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ModelID < infos[j].ModelID })
	return infos
}

// ModelCount returns the number of registry entries, bootstrap included.
func (s *Service) ModelCount() int {
	return s.registry.Len()
}

// DeleteModel removes the classifier, scaler and encoder together.
func (s *Service) DeleteModel(modelID string) error {
	if !s.registry.Delete(modelID) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	s.logger.Info("model deleted", zap.String("model_id", modelID))
	s.publish(EventModelDeleted, modelID, nil)
	return nil
}

// Stats reports service counters plus recent training runs from the audit
// store when one is configured.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	stats := Stats{
		Predictions: s.predictions,
		Trainings:   s.trainings,
		CacheHits:   s.cacheHits,
	}
	if s.predictions > 0 {
		stats.AvgInferenceMs = round2(s.totalInferMs / float64(s.predictions))
	}
	s.mu.Unlock()

	stats.ModelCount = s.registry.Len()
	stats.UptimeSeconds = round2(time.Since(s.startedAt).Seconds())

	if s.store != nil {
		if total, flagged, err := s.store.PredictionCounts(); err == nil {
			stats.PredictionsLogged = total
			stats.PredictionsFlagged = flagged
		}
		if runs, err := s.store.RecentTrainingRuns(10); err == nil {
			stats.RecentTrainingRuns = runs
		}
	}
	return stats
}

func (s *Service) publish(eventType, modelID string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Type:      eventType,
		ModelID:   modelID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func (s *Service) countTraining() {
	s.mu.Lock()
	s.trainings++
	s.mu.Unlock()
}

func (s *Service) countPrediction(inferMs float64) {
	s.mu.Lock()
	s.predictions++
	s.totalInferMs += inferMs
	s.mu.Unlock()
}

func (s *Service) countCacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

// splitDataset shuffles with a fixed seed and splits off the validation
// fraction. Out-of-range fractions fall back to 0.2.
func splitDataset(features [][]float64, labels []int, validationSplit float64) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	if validationSplit <= 0 || validationSplit >= 1 {
		validationSplit = 0.2
	}
	rnd := rand.New(rand.NewSource(splitSeed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - validationSplit)))
	if split < 1 {
		split = 1
	}
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			valX = append(valX, features[idx])
			valY = append(valY, labels[idx])
		}
	}
	return trainX, trainY, valX, valY
}

func accuracy(c ml.Classifier, features [][]float64, labels []int) (float64, error) {
	if len(labels) == 0 {
		return 0, nil
	}
	correct := 0
	for i, row := range features {
		pred, _, err := ml.PredictClass(c, row)
		if err != nil {
			return 0, err
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}

// validate computes validation accuracy and the confusion matrix with rows
// indexed by true class and columns by predicted class.
func validate(c ml.Classifier, features [][]float64, labels []int, numClasses int) (float64, [][]int, error) {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	if len(labels) == 0 {
		return 0, matrix, nil
	}
	correct := 0
	for i, row := range features {
		pred, _, err := ml.PredictClass(c, row)
		if err != nil {
			return 0, nil, err
		}
		if pred == labels[i] {
			correct++
		}
		if labels[i] < numClasses && pred < numClasses {
			matrix[labels[i]][pred]++
		}
	}
	return float64(correct) / float64(len(labels)), matrix, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
