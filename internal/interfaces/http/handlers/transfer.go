// internal/interfaces/http/handlers/transfer.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/domain/transfer"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
)

// TransferHandler handles transfer workflow endpoints
type TransferHandler struct {
	transferService *transfer.Service
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transferService *transfer.Service) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// CreateTransfer requests a bar-to-bar transfer
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req transfer.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.transferService.Create(eventID, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transfer requested successfully",
		"data":    result,
	})
}

// GetTransfers lists the transfers of an event, optionally by status
func (h *TransferHandler) GetTransfers(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var status *transfer.Status
	if raw := c.Query("status"); raw != "" {
		value := transfer.Status(raw)
		switch value {
		case transfer.StatusRequested, transfer.StatusApproved, transfer.StatusCompleted,
			transfer.StatusRejected, transfer.StatusCancelled:
			status = &value
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status parameter"})
			return
		}
	}

	transfers, err := h.transferService.GetTransfers(eventID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": transfers,
	})
}

// GetTransfer retrieves one transfer
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	transferID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.transferService.GetTransfer(transferID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// Approve moves a requested transfer to approved
func (h *TransferHandler) Approve(c *gin.Context) {
	h.transition(c, h.transferService.Approve, "Transfer approved")
}

// Reject declines a requested transfer
func (h *TransferHandler) Reject(c *gin.Context) {
	h.transition(c, h.transferService.Reject, "Transfer rejected")
}

// Cancel withdraws a requested or approved transfer
func (h *TransferHandler) Cancel(c *gin.Context) {
	h.transition(c, h.transferService.Cancel, "Transfer cancelled")
}

// Complete executes an approved transfer through the ledger
func (h *TransferHandler) Complete(c *gin.Context) {
	h.transition(c, h.transferService.Complete, "Transfer completed")
}

func (h *TransferHandler) transition(c *gin.Context, fn func(uint, uint) (*transfer.StockTransfer, error), message string) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	transferID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := fn(transferID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}
