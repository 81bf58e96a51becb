package service

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"academiaml/grading"
	"academiaml/ml"
)

// Predict grades one answer region. An unknown model id never fails: a
// synthetic bootstrap entry is created so grading stays available before any
// training, at the cost of low-quality predictions.
func (s *Service) Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	start := time.Now()

	maxPoints := req.MaxPoints
	if maxPoints == 0 {
		maxPoints = 10.0
	}
	ocrConfidence := 0.5
	if req.OCRData.Confidence != nil {
		ocrConfidence = *req.OCRData.Confidence
	}

	entry, ok := s.registry.Get(req.ModelID)
	if !ok {
		s.logger.Warn("model not found, creating bootstrap model",
			zap.String("model_id", req.ModelID))
		var err error
		entry, err = s.registry.EnsureDefault(req.ModelID)
		if err != nil {
			return PredictionResult{}, fmt.Errorf("bootstrap model: %w", err)
		}
	}

	text := grading.NormalizeOCRText(req.Text)

	key := cacheKey(entry.ModelID, entry.CreatedAt.UnixNano(), text, req.QuestionType, req.ExpectedAnswer, ocrConfidence, maxPoints)
	if s.cache != nil {
		if cached, hit := s.cache.Get(key); hit {
			s.countCacheHit()
			cached.RegionID = req.RegionID
			cached.InferenceTimeMs = round2(float64(time.Since(start).Nanoseconds()) / 1e6)
			return cached, nil
		}
	}

	features := grading.ExtractFeatures(text, req.QuestionType, ocrConfidence, req.ExpectedAnswer)
	if entry.Scaler != nil && entry.Scaler.Fitted() {
		scaled, err := entry.Scaler.Transform(features)
		if err != nil {
			return PredictionResult{}, fmt.Errorf("scale features: %w", err)
		}
		features = scaled
	}

	classIdx, confidence, err := ml.PredictClass(entry.Classifier, features)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("predict: %w", err)
	}

	label, err := s.decodeLabel(entry.Encoder, entry.ModelID, classIdx)
	if err != nil {
		return PredictionResult{}, err
	}

	result := PredictionResult{
		RegionID:             req.RegionID,
		PredictedCorrectness: label,
		Confidence:           confidence,
		AssignedScore:        grading.CalculateScore(label, maxPoints),
		Explanation:          grading.GenerateExplanation(req.QuestionType, label, confidence),
		NeedsReview:          confidence < ReviewThreshold,
		InferenceTimeMs:      round2(float64(time.Since(start).Nanoseconds()) / 1e6),
	}

	if s.cache != nil {
		s.cache.Add(key, result)
	}
	if s.store != nil {
		if err := s.store.LogPrediction(req.ModelID, req.RegionID, label, confidence, result.AssignedScore, result.NeedsReview); err != nil {
			s.logger.Warn("failed to log prediction", zap.Error(err))
		}
	}
	s.publish(EventPrediction, req.ModelID, result)
	s.countPrediction(result.InferenceTimeMs)
	return result, nil
}

// PredictBatch grades all regions with the batch's model id, preserving input
// order. Items are evaluated concurrently; each prediction stays internally
// sequential.
func (s *Service) PredictBatch(ctx context.Context, modelID string, requests []PredictionRequest) ([]PredictionResult, error) {
	if _, ok := s.registry.Get(modelID); !ok {
		// Bootstrap once up front so concurrent items don't all build one.
		if _, err := s.registry.EnsureDefault(modelID); err != nil {
			return nil, fmt.Errorf("bootstrap model: %w", err)
		}
	}

	results := make([]PredictionResult, len(requests))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range requests {
		i := i
		req := requests[i]
		req.ModelID = modelID
		g.Go(func() error {
			result, err := s.Predict(ctx, req)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// decodeLabel maps a class index back to its label string. Entries without a
// fitted encoder (loaded blobs missing the encoder file) fall back to the
// implicit class order; this can mislabel and is logged every time.
func (s *Service) decodeLabel(encoder *ml.LabelEncoder, modelID string, classIdx int) (string, error) {
	if encoder != nil && encoder.Fitted() {
		label, err := encoder.InverseTransform(classIdx)
		if err != nil {
			return "", fmt.Errorf("decode label: %w", err)
		}
		return label, nil
	}
	s.logger.Warn("no label encoder fitted, decoding with implicit class order",
		zap.String("model_id", modelID), zap.Int("class_index", classIdx))
	return grading.DefaultClassOrder[classIdx%len(grading.DefaultClassOrder)], nil
}

func cacheKey(modelID string, generation int64, text, questionType, expectedAnswer string, ocrConfidence, maxPoints float64) string {
	var b strings.Builder
	b.WriteString(modelID)
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(generation, 10))
	b.WriteByte(0)
	b.WriteString(text)
	b.WriteByte(0)
	b.WriteString(questionType)
	b.WriteByte(0)
	b.WriteString(expectedAnswer)
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(ocrConfidence, 'g', -1, 64))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(maxPoints, 'g', -1, 64))
	return b.String()
}
