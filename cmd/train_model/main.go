package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"academiaml/ml"
	"academiaml/registry"
	"academiaml/service"
)

// Offline trainer: reads labeled examples from a JSON file, fits a model and
// writes the model, scaler and encoder blobs to the output directory, where
// the running service can pick them up.
func main() {
	dataPath := flag.String("data", "", "path to training examples JSON file")
	modelID := flag.String("model_id", "", "model identifier")
	templateID := flag.String("template_id", "", "assessment template identifier")
	modelType := flag.String("model_type", ml.TypeRandomForest, "classifier backend")
	validationSplit := flag.Float64("validation_split", 0.2, "validation fraction")
	outDir := flag.String("out", service.DefaultModelDir, "model output directory")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}
	if *modelID == "" {
		log.Fatal("model_id is required")
	}

	examples, err := loadExamples(*dataPath)
	if err != nil {
		log.Fatalf("failed to load training data: %v", err)
	}

	svc := service.New(registry.New(), nil, nil, service.Options{CacheSize: -1})
	cfg := service.TrainingConfig{
		Config:          ml.Config{ModelType: *modelType},
		ValidationSplit: *validationSplit,
	}
	result, err := svc.Train(context.Background(), *modelID, *templateID, examples, cfg)
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}
	log.Printf("accuracy=%.2f validation_accuracy=%.2f examples=%d",
		result.Accuracy, result.ValidationAccuracy, len(examples))

	if err := svc.SaveModel(*modelID, *outDir); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model %s saved to %s\n", *modelID, *outDir)
}

func loadExamples(path string) ([]service.TrainingExample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var examples []service.TrainingExample
	if err := json.NewDecoder(file).Decode(&examples); err != nil {
		return nil, err
	}
	return examples, nil
}
