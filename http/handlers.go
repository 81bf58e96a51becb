package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"academiaml/service"
)

// Handler exposes the grading service over HTTP. It is deliberately thin:
// request decoding, error-to-status mapping, nothing else.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
	hub    *EventHub
}

func NewHandler(svc *service.Service, logger *zap.Logger, hub *EventHub) *Handler {
	return &Handler{svc: svc, logger: logger, hub: hub}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/models", h.handleListModels)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("POST /api/predict/batch", h.handlePredictBatch)
	mux.HandleFunc("POST /api/train", h.handleTrain)
	mux.HandleFunc("DELETE /api/models/{id}", h.handleDeleteModel)
	mux.HandleFunc("POST /api/models/{id}/save", h.handleSaveModel)
	mux.HandleFunc("POST /api/models/{id}/load", h.handleLoadModel)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	if h.hub != nil {
		mux.HandleFunc("GET /api/ws/events", h.hub.HandleWS)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"models_loaded": h.svc.ModelCount(),
	})
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListModels())
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req service.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	result, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchPredictRequest struct {
	ModelID     string                      `json:"model_id"`
	Predictions []service.PredictionRequest `json:"predictions"`
}

func (h *Handler) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	results, err := h.svc.PredictBatch(r.Context(), req.ModelID, req.Predictions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type trainRequest struct {
	ModelID      string                    `json:"model_id"`
	TemplateID   string                    `json:"template_id"`
	TrainingData []service.TrainingExample `json:"training_data"`
	Config       *service.TrainingConfig   `json:"config"`
}

func (h *Handler) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	cfg := service.TrainingConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	result, err := h.svc.Train(r.Context(), req.ModelID, req.TemplateID, req.TrainingData, cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("id")
	if err := h.svc.DeleteModel(modelID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Model %s deleted", modelID)})
}

func (h *Handler) handleSaveModel(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("id")
	path := r.URL.Query().Get("path")
	if path == "" {
		path = service.DefaultModelDir
	}
	if err := h.svc.SaveModel(modelID, path); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Model %s saved to %s", modelID, path)})
}

func (h *Handler) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("id")
	path := r.URL.Query().Get("path")
	if path == "" {
		path = service.DefaultModelDir
	}
	if err := h.svc.LoadModel(modelID, path); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Model %s loaded from %s", modelID, path)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrModelNotFound), errors.Is(err, service.ErrModelFileNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
