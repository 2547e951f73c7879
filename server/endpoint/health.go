package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/component"
	"github.com/kbukum/primesieve/observability"
	"github.com/kbukum/primesieve/version"
)

// HealthChecker returns the health of the registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Health returns a handler that aggregates component health. Any unhealthy
// component turns the service down and the response into a 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := ServiceHealth(c.Request.Context(), serviceName, checker)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}

// ServiceHealth runs checker and folds the results into one service status.
func ServiceHealth(ctx context.Context, serviceName string, checker HealthChecker) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(serviceName, version.Version)
	if checker == nil {
		return sh
	}
	for _, h := range checker(ctx) {
		sh.AddComponent(observability.Health{
			Name:    h.Name,
			Status:  healthStatus(h.Status),
			Message: h.Message,
		})
	}
	return sh
}

func healthStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusHealthy:
		return observability.HealthStatusUp
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusDown
	}
}
