package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"academiaml/ml"
	"academiaml/registry"
)

// DefaultModelDir is the save/load path used when none is given.
const DefaultModelDir = "./models"

func modelBlobPath(dir, modelID string) string {
	return filepath.Join(dir, modelID+"_model.json")
}

func scalerBlobPath(dir, modelID string) string {
	return filepath.Join(dir, modelID+"_scaler.json")
}

func encoderBlobPath(dir, modelID string) string {
	return filepath.Join(dir, modelID+"_encoder.json")
}

// SaveModel serializes the entry's classifier, scaler and encoder as three
// independent blobs under dir. The scaler and encoder files are only written
// when fitted.
func (s *Service) SaveModel(modelID, dir string) error {
	if dir == "" {
		dir = DefaultModelDir
	}
	entry, ok := s.registry.Get(modelID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	blob, err := ml.MarshalClassifier(entry.Classifier)
	if err != nil {
		return fmt.Errorf("serialize classifier: %w", err)
	}
	if err := os.WriteFile(modelBlobPath(dir, modelID), blob, 0o600); err != nil {
		return fmt.Errorf("write classifier blob: %w", err)
	}

	if entry.Scaler != nil && entry.Scaler.Fitted() {
		payload, err := json.Marshal(entry.Scaler)
		if err != nil {
			return fmt.Errorf("serialize scaler: %w", err)
		}
		if err := os.WriteFile(scalerBlobPath(dir, modelID), payload, 0o600); err != nil {
			return fmt.Errorf("write scaler blob: %w", err)
		}
	}
	if entry.Encoder != nil && entry.Encoder.Fitted() {
		payload, err := json.Marshal(entry.Encoder)
		if err != nil {
			return fmt.Errorf("serialize encoder: %w", err)
		}
		if err := os.WriteFile(encoderBlobPath(dir, modelID), payload, 0o600); err != nil {
			return fmt.Errorf("write encoder blob: %w", err)
		}
	}

	s.logger.Info("model saved", zap.String("model_id", modelID), zap.String("dir", dir))
	s.publish(EventModelSaved, modelID, nil)
	return nil
}

// LoadModel reads the classifier blob (required) and the scaler/encoder blobs
// (optional) from dir and installs the entry into the registry. The loaded
// entry carries no accuracy; it is not recomputed.
func (s *Service) LoadModel(modelID, dir string) error {
	if dir == "" {
		dir = DefaultModelDir
	}

	blob, err := os.ReadFile(modelBlobPath(dir, modelID))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrModelFileNotFound, modelBlobPath(dir, modelID))
		}
		return fmt.Errorf("read classifier blob: %w", err)
	}
	classifier, err := ml.UnmarshalClassifier(blob)
	if err != nil {
		return fmt.Errorf("deserialize classifier: %w", err)
	}

	entry := &registry.Entry{
		Classifier: classifier,
		TemplateID: "loaded",
		ModelType:  classifier.Type(),
		Accuracy:   0,
		CreatedAt:  time.Now().UTC(),
	}

	if payload, err := os.ReadFile(scalerBlobPath(dir, modelID)); err == nil {
		scaler := &ml.StandardScaler{}
		if err := json.Unmarshal(payload, scaler); err != nil {
			return fmt.Errorf("deserialize scaler: %w", err)
		}
		entry.Scaler = scaler
	}
	if payload, err := os.ReadFile(encoderBlobPath(dir, modelID)); err == nil {
		encoder := &ml.LabelEncoder{}
		if err := json.Unmarshal(payload, encoder); err != nil {
			return fmt.Errorf("deserialize encoder: %w", err)
		}
		entry.Encoder = encoder
	}

	s.registry.Put(modelID, entry)
	s.logger.Info("model loaded", zap.String("model_id", modelID), zap.String("dir", dir),
		zap.String("model_type", entry.ModelType))
	s.publish(EventModelLoaded, modelID, nil)
	return nil
}
