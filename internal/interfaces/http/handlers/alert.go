// internal/interfaces/http/handlers/alert.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/domain/alert"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
)

// AlertHandler handles alert lifecycle endpoints
type AlertHandler struct {
	alertService *alert.Service
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService *alert.Service) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts lists the alerts of an event, optionally filtered by status
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var status *alert.AlertStatus
	if raw := c.Query("status"); raw != "" {
		value := alert.AlertStatus(raw)
		switch value {
		case alert.AlertStatusActive, alert.AlertStatusAcknowledged, alert.AlertStatusResolved:
			status = &value
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status parameter"})
			return
		}
	}

	alerts, err := h.alertService.GetAlerts(eventID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

// ForceCheck sweeps every threshold of an event and returns the full
// current alert picture
func (h *AlertHandler) ForceCheck(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	alerts, err := h.alertService.ForceCheck(eventID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Check completed",
		"data":    alerts,
	})
}

// Acknowledge moves an active alert to acknowledged
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	alertID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.alertService.Acknowledge(alertID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert acknowledged",
		"data":    result,
	})
}

// Resolve closes an alert
func (h *AlertHandler) Resolve(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	alertID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.alertService.Resolve(alertID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert resolved",
		"data":    result,
	})
}
