package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dealradar/price-tracker/internal/api/handlers"
	"github.com/dealradar/price-tracker/internal/ledger"
	"github.com/dealradar/price-tracker/internal/monitor"
)

func SetupRouter(db *gorm.DB, lg *ledger.Ledger, m *monitor.Monitor, corsOrigins []string) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		config.AllowOrigins = corsOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	// Initialize handlers
	monitorHandler := handlers.NewMonitorHandler(m)
	trackingHandler := handlers.NewTrackingHandler(lg)
	productHandler := handlers.NewProductHandler(db)

	// API routes
	api := router.Group("/api")
	{
		products := api.Group("/products")
		{
			products.GET("/:id", productHandler.GetProduct)
			products.POST("/:id/refresh", monitorHandler.RefreshProduct)
		}

		tracking := api.Group("/tracking")
		{
			tracking.GET("/price-history/:productId", trackingHandler.GetPriceHistory)
		}

		mon := api.Group("/monitor")
		{
			mon.GET("/status", monitorHandler.GetStatus)
			mon.POST("/run", monitorHandler.RunCycle)
		}
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return router
}
