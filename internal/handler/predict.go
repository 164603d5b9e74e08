package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"manas-backend/internal/emotion_client"
	"manas-backend/internal/inference"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PredictHandler interface {
	Predict(c *gin.Context)
	Health(c *gin.Context)
}

// HealthProber is the model service health probe.
type HealthProber interface {
	Health(ctx context.Context) (*emotion_client.HealthResponse, error)
}

type predictHandler struct {
	gateway      *inference.Gateway
	modelService HealthProber
	logger       *zap.Logger
}

func NewPredictHandler(gateway *inference.Gateway, modelService HealthProber, logger *zap.Logger) PredictHandler {
	return &predictHandler{gateway: gateway, modelService: modelService, logger: logger}
}

type PredictRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

// Predict handles POST /predict, the non-streaming classification endpoint
// used by the mobile client and integration checks. When the model backend is
// down it answers 503 but still carries the locally-computed crisis fields.
func (h *predictHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		h.logger.Error("Malformed predict request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "text field is required"})
		return
	}

	result, err := h.gateway.Classify(c.Request.Context(), req.Text, req.MaxLength)
	if err != nil {
		if errors.Is(err, inference.ErrModelUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "emotion model unavailable",
				"emotion":    result.Emotion,
				"confidence": result.Confidence,
				"is_crisis":  result.IsCrisis,
			})
			return
		}
		h.logger.Error("Classification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
		return
	}

	// all_scores stays a descending-ordered array; a JSON object would lose
	// the ranking.
	c.JSON(http.StatusOK, gin.H{
		"emotion":    result.Emotion,
		"confidence": result.Confidence,
		"is_crisis":  result.IsCrisis,
		"all_scores": result.AllScores,
	})
}

// Health handles GET /health and proxies the model service probe.
func (h *predictHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	modelLoaded := false
	if health, err := h.modelService.Health(ctx); err == nil {
		modelLoaded = health.ModelLoaded
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": modelLoaded,
	})
}
