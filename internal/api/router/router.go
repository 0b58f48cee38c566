package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vipplay/content-dispatcher/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "content-dispatcher-api",
		})
	})

	generationHandler := handler.NewGenerationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		generations := v1.Group("/generations")
		generations.Use(IdentityMiddleware())
		{
			// POST /api/v1/generations - Enqueue a generation job
			generations.POST("", generationHandler.CreateGeneration)

			// GET /api/v1/generations - List the caller's jobs
			generations.GET("", generationHandler.ListGenerations)

			// GET /api/v1/generations/:job_id - Get job details
			generations.GET("/:job_id", generationHandler.GetGeneration)
		}

		diagnostics := v1.Group("/diagnostics")
		{
			// GET /api/v1/diagnostics/queue - Queue settings status
			diagnostics.GET("/queue", generationHandler.QueueDiagnostics)

			// POST /api/v1/diagnostics/queue/test-message - Send probe
			diagnostics.POST("/queue/test-message", generationHandler.SendTestMessage)
		}
	}

	return r
}
