// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/barflow-backend/internal/config"
	"github.com/your-org/barflow-backend/internal/domain/alert"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/domain/transfer"
	"github.com/your-org/barflow-backend/internal/domain/user"
	"github.com/your-org/barflow-backend/internal/interfaces/http/handlers"
	"github.com/your-org/barflow-backend/internal/interfaces/http/middleware"
	"github.com/your-org/barflow-backend/internal/pkg/notify"
	"gorm.io/gorm"
)

// SetupRoutes wires all services and registers every API route
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) {
	notifier := notify.Notifier(notify.Nop{})
	if redisClient != nil {
		notifier = notify.NewRedisNotifier(redisClient, cfg.Alerting.NotificationChannelPrefix, logger)
	}

	userService := user.NewService(db, cfg)
	catalogService := catalog.NewService(db)
	inventoryService := inventory.NewService(db, cfg, logger)
	alertService := alert.NewService(db, cfg, logger, catalogService, notifier)
	transferService := transfer.NewService(db, logger, inventoryService, catalogService, notifier)

	// Every completed sale triggers alert evaluation for the affected
	// drinks. Failures are logged and never surface into the sale.
	inventoryService.SetAfterSaleHook(func(eventID, barID uint, drinkIDs []uint) {
		if err := alertService.OnSale(eventID, barID, drinkIDs); err != nil {
			logger.WithFields(logrus.Fields{
				"event_id": eventID,
				"bar_id":   barID,
			}).Errorf("post-sale alert evaluation failed: %v", err)
		}
	})

	setupAuthRoutes(rg, cfg, userService)
	setupCatalogRoutes(rg, cfg, catalogService, inventoryService)
	setupInventoryRoutes(rg, cfg, inventoryService)
	setupEventRoutes(rg, cfg, alertService, transferService)
	setupAlertRoutes(rg, cfg, alertService)
	setupTransferRoutes(rg, cfg, transferService)
}

func setupAuthRoutes(rg *gin.RouterGroup, cfg *config.Config, userService *user.Service) {
	authHandler := handlers.NewAuthHandler(userService)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

func setupCatalogRoutes(rg *gin.RouterGroup, cfg *config.Config, catalogService *catalog.Service, inventoryService *inventory.Service) {
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	stockHandler := handlers.NewStockHandler(inventoryService)

	drinks := rg.Group("/drinks")
	drinks.Use(middleware.AuthMiddleware(cfg))
	{
		drinks.GET("", catalogHandler.GetDrinks)
		drinks.POST("", catalogHandler.CreateDrink)
		drinks.GET("/:id", catalogHandler.GetDrink)
	}

	suppliers := rg.Group("/suppliers")
	suppliers.Use(middleware.AuthMiddleware(cfg))
	{
		suppliers.GET("", catalogHandler.GetSuppliers)
		suppliers.POST("", catalogHandler.CreateSupplier)
	}

	events := rg.Group("/events")
	events.Use(middleware.AuthMiddleware(cfg))
	{
		events.GET("", catalogHandler.GetEvents)
		events.POST("", catalogHandler.CreateEvent)
		events.GET("/:id", catalogHandler.GetEvent)
		events.GET("/:id/bars", catalogHandler.GetBars)
	}

	bars := rg.Group("/bars")
	bars.Use(middleware.AuthMiddleware(cfg))
	{
		bars.POST("", catalogHandler.CreateBar)
		bars.GET("/:id/stock", stockHandler.GetBarStock)
	}
}

func setupInventoryRoutes(rg *gin.RouterGroup, cfg *config.Config, inventoryService *inventory.Service) {
	stockHandler := handlers.NewStockHandler(inventoryService)

	inv := rg.Group("/inventory")
	inv.Use(middleware.AuthMiddleware(cfg))
	{
		inv.GET("/entries", stockHandler.GetEntries)
		inv.POST("/entries", stockHandler.CreateEntry)
		inv.POST("/assign", stockHandler.Assign)
		inv.POST("/assign/bulk", stockHandler.BulkAssign)
		inv.POST("/move", stockHandler.Move)
		inv.POST("/return", stockHandler.Return)
		inv.POST("/return-to-supplier", stockHandler.ReturnToSupplier)
		inv.POST("/discard", stockHandler.Discard)
		inv.POST("/deplete", stockHandler.Deplete)
		inv.GET("/movements", stockHandler.GetMovements)
	}
}

func setupEventRoutes(rg *gin.RouterGroup, cfg *config.Config, alertService *alert.Service, transferService *transfer.Service) {
	thresholdHandler := handlers.NewThresholdHandler(alertService)
	alertHandler := handlers.NewAlertHandler(alertService)
	transferHandler := handlers.NewTransferHandler(transferService)

	events := rg.Group("/events")
	events.Use(middleware.AuthMiddleware(cfg))
	{
		events.GET("/:id/thresholds", thresholdHandler.GetThresholds)
		events.POST("/:id/thresholds", thresholdHandler.CreateThreshold)
		events.GET("/:id/alerts", alertHandler.GetAlerts)
		events.POST("/:id/alerts/force-check", alertHandler.ForceCheck)
		events.GET("/:id/transfers", transferHandler.GetTransfers)
		events.POST("/:id/transfers", transferHandler.CreateTransfer)
	}
}

func setupAlertRoutes(rg *gin.RouterGroup, cfg *config.Config, alertService *alert.Service) {
	thresholdHandler := handlers.NewThresholdHandler(alertService)
	alertHandler := handlers.NewAlertHandler(alertService)

	thresholds := rg.Group("/thresholds")
	thresholds.Use(middleware.AuthMiddleware(cfg))
	{
		thresholds.PUT("/:id", thresholdHandler.UpdateThreshold)
		thresholds.DELETE("/:id", thresholdHandler.DeleteThreshold)
	}

	alerts := rg.Group("/alerts")
	alerts.Use(middleware.AuthMiddleware(cfg))
	{
		alerts.PUT("/:id/acknowledge", alertHandler.Acknowledge)
		alerts.PUT("/:id/resolve", alertHandler.Resolve)
	}
}

func setupTransferRoutes(rg *gin.RouterGroup, cfg *config.Config, transferService *transfer.Service) {
	transferHandler := handlers.NewTransferHandler(transferService)

	transfers := rg.Group("/transfers")
	transfers.Use(middleware.AuthMiddleware(cfg))
	{
		transfers.GET("/:id", transferHandler.GetTransfer)
		transfers.PUT("/:id/approve", transferHandler.Approve)
		transfers.PUT("/:id/reject", transferHandler.Reject)
		transfers.PUT("/:id/cancel", transferHandler.Cancel)
		transfers.PUT("/:id/complete", transferHandler.Complete)
	}
}
