// internal/interfaces/http/handlers/threshold.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/domain/alert"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
)

// ThresholdHandler handles threshold registry endpoints
type ThresholdHandler struct {
	alertService *alert.Service
}

// NewThresholdHandler creates a new threshold handler
func NewThresholdHandler(alertService *alert.Service) *ThresholdHandler {
	return &ThresholdHandler{alertService: alertService}
}

// CreateThreshold configures a threshold for one (event, drink, pool)
func (h *ThresholdHandler) CreateThreshold(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req alert.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	threshold, err := h.alertService.CreateThreshold(eventID, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Threshold created successfully",
		"data":    threshold,
	})
}

// GetThresholds lists the thresholds of an event
func (h *ThresholdHandler) GetThresholds(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	thresholds, err := h.alertService.GetThresholds(eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": thresholds,
	})
}

// UpdateThreshold changes the limits of an existing threshold
func (h *ThresholdHandler) UpdateThreshold(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	thresholdID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req alert.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	threshold, err := h.alertService.UpdateThreshold(thresholdID, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Threshold updated successfully",
		"data":    threshold,
	})
}

// DeleteThreshold removes a threshold configuration
func (h *ThresholdHandler) DeleteThreshold(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	thresholdID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.alertService.DeleteThreshold(thresholdID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Threshold deleted successfully",
	})
}
