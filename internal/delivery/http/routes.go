package http

import (
	"github.com/gin-gonic/gin"
	"github.com/pantrylens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/barcodes/:code", handler.NormalizeBarcode)
		v1.POST("/scans", handler.RecordScan)
		v1.GET("/products/lookup/:barcode", handler.LookupProduct)
		v1.GET("/items", handler.ListItems)
		v1.GET("/items/:id", handler.GetItem)
		v1.DELETE("/items/:id", handler.DeleteItem)
		v1.POST("/items/:id/increment", handler.IncrementItem)
		v1.POST("/items/:id/decrement", handler.DecrementItem)

		shopping := v1.Group("/shopping-list")
		{
			shopping.GET("", handler.ListShoppingItems)
			shopping.POST("", handler.AddShoppingItem)
			shopping.PUT("/:id", handler.UpdateShoppingItem)
			shopping.DELETE("/:id", handler.DeleteShoppingItem)
			shopping.POST("/alexa-import", handler.ImportAlexa)
			shopping.POST("/restock", handler.RestockShoppingList)
		}
	}

	return router
}
