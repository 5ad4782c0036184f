package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one backing dependency is usable
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 3 * time.Second

// Health runs every registered check. Any failure turns the response into a
// 503 naming the failing dependency.
func Health(serviceName string, checks map[string]HealthCheck, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": serviceName,
		}
		if len(names) == 0 {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn("Health check failed",
					slog.String("check", name),
					slog.Any("error", err),
				)
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		if status != http.StatusOK {
			body["status"] = "unhealthy"
		}
		body["checks"] = results
		c.JSON(status, body)
	}
}
