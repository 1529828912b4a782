// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
)

// CatalogHandler handles drink, supplier, event and bar endpoints
type CatalogHandler struct {
	catalogService *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateDrink handles drink creation
func (h *CatalogHandler) CreateDrink(c *gin.Context) {
	var req catalog.CreateDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	drink, err := h.catalogService.CreateDrink(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Drink created successfully",
		"data":    drink,
	})
}

// GetDrinks lists all drinks
func (h *CatalogHandler) GetDrinks(c *gin.Context) {
	drinks, err := h.catalogService.GetDrinks()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": drinks,
	})
}

// GetDrink retrieves one drink
func (h *CatalogHandler) GetDrink(c *gin.Context) {
	drinkID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	drink, err := h.catalogService.GetDrink(drinkID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": drink,
	})
}

// CreateSupplier handles supplier creation
func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	supplier, err := h.catalogService.CreateSupplier(req.Name, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Supplier created successfully",
		"data":    supplier,
	})
}

// GetSuppliers lists all suppliers
func (h *CatalogHandler) GetSuppliers(c *gin.Context) {
	suppliers, err := h.catalogService.GetSuppliers()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": suppliers,
	})
}

// CreateEvent handles event creation
func (h *CatalogHandler) CreateEvent(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req catalog.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	event, err := h.catalogService.CreateEvent(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully",
		"data":    event,
	})
}

// GetEvents lists the authenticated user's events
func (h *CatalogHandler) GetEvents(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	events, err := h.catalogService.GetEventsForOwner(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": events,
	})
}

// GetEvent retrieves one event with its bars
func (h *CatalogHandler) GetEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.catalogService.GetEvent(eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": event,
	})
}

// CreateBar handles bar creation inside an event
func (h *CatalogHandler) CreateBar(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req catalog.CreateBarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	bar, err := h.catalogService.CreateBar(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bar created successfully",
		"data":    bar,
	})
}

// GetBars lists the bars of an event
func (h *CatalogHandler) GetBars(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	bars, err := h.catalogService.GetBarsForEvent(eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": bars,
	})
}
