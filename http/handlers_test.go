package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"academiaml/registry"
	"academiaml/service"
)

func newTestMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(registry.New(), nil, zap.NewNop(), service.Options{})
	mux := http.NewServeMux()
	NewHandler(svc, zap.NewNop(), nil).Register(mux)
	return mux, svc
}

func trainingPayload(perClass int) map[string]interface{} {
	data := make([]map[string]interface{}, 0, 2*perClass)
	for i := 0; i < perClass; i++ {
		data = append(data, map[string]interface{}{
			"text":            "the water cycle moves water through evaporation condensation and precipitation",
			"question_type":   "SHORT_ANSWER",
			"expected_answer": "evaporation condensation precipitation",
			"label":           "CORRECT",
			"score":           10,
		})
		data = append(data, map[string]interface{}{
			"text":            "no",
			"question_type":   "SHORT_ANSWER",
			"expected_answer": "evaporation condensation precipitation",
			"label":           "INCORRECT",
			"score":           0,
		})
	}
	return map[string]interface{}{
		"model_id":      "quiz-1",
		"template_id":   "tpl-1",
		"training_data": data,
		"config": map[string]interface{}{
			"model_type":   "random_forest",
			"n_estimators": 10,
			"max_depth":    4,
		},
	}
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Fatalf("unexpected status %v", payload["status"])
	}
	if _, ok := payload["models_loaded"]; !ok {
		t.Fatal("expected models_loaded")
	}
	if _, ok := payload["timestamp"]; !ok {
		t.Fatal("expected timestamp")
	}
}

func TestHandleTrainThenPredict(t *testing.T) {
	mux, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/api/train", trainingPayload(6))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var trainResp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &trainResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if trainResp["model_id"] != "quiz-1" {
		t.Fatalf("unexpected model id %v", trainResp["model_id"])
	}
	if _, ok := trainResp["confusion_matrix"]; !ok {
		t.Fatal("expected confusion matrix")
	}

	w = doJSON(t, mux, http.MethodPost, "/api/predict", map[string]interface{}{
		"model_id":        "quiz-1",
		"region_id":       "r1",
		"text":            "the water cycle moves water through evaporation condensation and precipitation",
		"question_type":   "SHORT_ANSWER",
		"expected_answer": "evaporation condensation precipitation",
		"max_points":      5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var predictResp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &predictResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if predictResp["region_id"] != "r1" {
		t.Fatalf("unexpected region id %v", predictResp["region_id"])
	}
	for _, field := range []string{"predicted_correctness", "confidence", "assigned_score", "explanation", "needs_review", "inference_time_ms"} {
		if _, ok := predictResp[field]; !ok {
			t.Fatalf("expected field %q in response", field)
		}
	}
}

func TestHandleTrainInsufficientData(t *testing.T) {
	mux, _ := newTestMux(t)
	payload := trainingPayload(6)
	payload["training_data"] = payload["training_data"].([]map[string]interface{})[:9]

	w := doJSON(t, mux, http.MethodPost, "/api/train", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["error"] == "" {
		t.Fatal("expected error message")
	}
}

func TestHandleTrainInvalidBody(t *testing.T) {
	mux, _ := newTestMux(t)
	req := httptest.NewRequest(http.MethodPost, "/api/train", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlePredictBatch(t *testing.T) {
	mux, _ := newTestMux(t)
	if w := doJSON(t, mux, http.MethodPost, "/api/train", trainingPayload(6)); w.Code != http.StatusOK {
		t.Fatalf("train failed: %d", w.Code)
	}

	predictions := make([]map[string]interface{}, 4)
	for i := range predictions {
		predictions[i] = map[string]interface{}{
			"region_id":     fmt.Sprintf("r%d", i),
			"text":          "no",
			"question_type": "SHORT_ANSWER",
		}
	}
	w := doJSON(t, mux, http.MethodPost, "/api/predict/batch", map[string]interface{}{
		"model_id":    "quiz-1",
		"predictions": predictions,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var results []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, result := range results {
		if result["region_id"] != fmt.Sprintf("r%d", i) {
			t.Fatalf("result %d out of order: %v", i, result["region_id"])
		}
	}
}

func TestHandleListModels(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodGet, "/api/models", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var models []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &models); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(models) != 0 {
		t.Fatalf("expected empty list, got %d", len(models))
	}

	if w := doJSON(t, mux, http.MethodPost, "/api/train", trainingPayload(6)); w.Code != http.StatusOK {
		t.Fatalf("train failed: %d", w.Code)
	}
	w = doJSON(t, mux, http.MethodGet, "/api/models", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &models); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(models) != 1 || models[0]["model_id"] != "quiz-1" {
		t.Fatalf("unexpected models: %v", models)
	}
}

func TestHandleDeleteModel(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodDelete, "/api/models/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	if w := doJSON(t, mux, http.MethodPost, "/api/train", trainingPayload(6)); w.Code != http.StatusOK {
		t.Fatalf("train failed: %d", w.Code)
	}
	w = doJSON(t, mux, http.MethodDelete, "/api/models/quiz-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Model quiz-1 deleted" {
		t.Fatalf("unexpected message %q", resp["message"])
	}
}

func TestHandleSaveLoadModel(t *testing.T) {
	mux, _ := newTestMux(t)
	dir := t.TempDir()

	if w := doJSON(t, mux, http.MethodPost, "/api/train", trainingPayload(6)); w.Code != http.StatusOK {
		t.Fatalf("train failed: %d", w.Code)
	}
	w := doJSON(t, mux, http.MethodPost, "/api/models/quiz-1/save?path="+dir, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodDelete, "/api/models/quiz-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}

	w = doJSON(t, mux, http.MethodPost, "/api/models/quiz-1/load?path="+dir, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Loading a model that was never saved is a 404.
	w = doJSON(t, mux, http.MethodPost, "/api/models/never-saved/load?path="+dir, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleStats(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, field := range []string{"model_count", "predictions", "trainings", "uptime_seconds"} {
		if _, ok := stats[field]; !ok {
			t.Fatalf("expected field %q in stats", field)
		}
	}
}
