package router

import (
	"log/slog"

	"github.com/cuongbtq/lead-generator/internal/api/handler"
	"github.com/cuongbtq/lead-generator/internal/metrics"
	"github.com/gin-gonic/gin"
)

// ServiceName is reported by the health check
const ServiceName = "leadgen-service"

// SetupRouter configures and returns the Gin router with all routes.
// A nil collector leaves /metrics unregistered.
func SetupRouter(deps *handler.Dependencies, collector *metrics.Collector) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", handler.Health(ServiceName, deps.HealthChecks, deps.Logger))

	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/requirements/extract - Structure a freeform request
		v1.POST("/requirements/extract", jobHandler.ExtractRequirements)

		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Start a lead generation job
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job status
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/artifact - Generate the CSV export
			jobs.POST("/:job_id/artifact", jobHandler.MaterializeArtifact)

			// GET /api/v1/jobs/:job_id/artifact - Download the CSV export
			jobs.GET("/:job_id/artifact", jobHandler.DownloadArtifact)
		}
	}

	return r
}
