package handler

import (
	"net/http"

	"manas-backend/internal/models"
	"manas-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AlertHandler interface {
	GetAllAlerts(c *gin.Context)
	UpdateAlertStatus(c *gin.Context)
}

type alertHandler struct {
	alertRepo repository.AlertRepository
	logger    *zap.Logger
}

func NewAlertHandler(alertRepo repository.AlertRepository, logger *zap.Logger) AlertHandler {
	return &alertHandler{alertRepo: alertRepo, logger: logger}
}

// GetAllAlerts handles GET /api/alerts
// Query parameters:
// - status: filter by status (optional)
func (h *alertHandler) GetAllAlerts(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.ValidAlertStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Valid values: pending, escalated, resolved"})
		return
	}

	alerts, err := h.alertRepo.ListAlerts(status)
	if err != nil {
		h.logger.Error("Failed to get alerts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// UpdateAlertStatus handles PUT /api/alerts/:id/status
type UpdateAlertStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *alertHandler) UpdateAlertStatus(c *gin.Context) {
	id := c.Param("id")

	var req UpdateAlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for alert status update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Counselors close alerts; pending/escalated transitions belong to the
	// scheduler and the upsert path.
	if req.Status != models.AlertStatusResolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only 'resolved' can be set through this endpoint"})
		return
	}

	updated, err := h.alertRepo.MarkResolved(id)
	if err != nil {
		h.logger.Error("Failed to resolve alert", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert status"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found or already resolved"})
		return
	}

	h.logger.Info("Alert resolved", zap.String("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Alert status updated successfully"})
}
