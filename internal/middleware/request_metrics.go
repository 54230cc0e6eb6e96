package middleware

import (
	"strconv"
	"time"

	"marketplace-backend/internal/platform/metrics"

	"github.com/gofiber/fiber/v2"
)

// RequestMetrics observes request latency by route template and status.
func RequestMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		m.RequestLatency.
			WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).
			Observe(time.Since(start).Seconds())
		return err
	}
}
