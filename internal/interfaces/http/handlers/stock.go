// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
)

// StockHandler handles inventory ledger endpoints
type StockHandler struct {
	inventoryService *inventory.Service
}

// NewStockHandler creates a new stock handler
func NewStockHandler(inventoryService *inventory.Service) *StockHandler {
	return &StockHandler{inventoryService: inventoryService}
}

// CreateEntry records newly acquired stock
func (h *StockHandler) CreateEntry(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	entry, err := h.inventoryService.CreateEntry(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Inventory entry created successfully",
		"data":    entry,
	})
}

// GetEntries lists the authenticated user's inventory entries
func (h *StockHandler) GetEntries(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	entries, err := h.inventoryService.GetEntries(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
	})
}

// Assign pushes stock from an inventory entry to a bar
func (h *StockHandler) Assign(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	stock, err := h.inventoryService.Assign(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock assigned successfully",
		"data":    stock,
	})
}

// BulkAssign applies several assignments in order; the first failure
// aborts the remainder and reports how many succeeded.
func (h *StockHandler) BulkAssign(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Assignments []inventory.AssignRequest `json:"assignments" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	results := make([]*inventory.BarStock, 0, len(req.Assignments))
	for i := range req.Assignments {
		stock, err := h.inventoryService.Assign(&req.Assignments[i], userID)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":     err.Error(),
				"succeeded": len(results),
			})
			return
		}
		results = append(results, stock)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock assigned successfully",
		"data":    results,
	})
}

// Move transfers stock between two bars
func (h *StockHandler) Move(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryService.Move(&req, userID, nil); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock moved successfully",
	})
}

// Return sends bar stock back to the global tier
func (h *StockHandler) Return(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryService.Return(&req, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock returned successfully",
	})
}

// ReturnToSupplier returns consignment stock to its supplier
func (h *StockHandler) ReturnToSupplier(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryService.ReturnToSupplier(&req, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock returned to supplier successfully",
	})
}

// Discard writes off a residual stock row
func (h *StockHandler) Discard(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryService.Discard(&req, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock discarded successfully",
	})
}

// Deplete consumes stock for one completed sale
func (h *StockHandler) Deplete(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req inventory.DepleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryService.Deplete(&req, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale depletion recorded successfully",
	})
}

// GetBarStock lists the stock rows of a bar
func (h *StockHandler) GetBarStock(c *gin.Context) {
	barID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stock, err := h.inventoryService.GetBarStock(barID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stock,
	})
}

// GetMovements lists movement-log rows with optional filters
func (h *StockHandler) GetMovements(c *gin.Context) {
	var filter inventory.MovementFilter

	if raw := c.Query("bar_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bar_id parameter"})
			return
		}
		barID := uint(value)
		filter.BarID = &barID
	}
	if raw := c.Query("drink_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid drink_id parameter"})
			return
		}
		drinkID := uint(value)
		filter.DrinkID = &drinkID
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter, expected RFC3339"})
			return
		}
		filter.Since = &since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		filter.Limit = limit
	}

	movements, err := h.inventoryService.GetMovements(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": movements,
	})
}
