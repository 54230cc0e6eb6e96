package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the request counters shown on the health dashboard.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

// HealthMarker records request stats in Redis. The dashboard, health,
// metrics and favicon routes are not counted, nor are websocket upgrades.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") ||
			path == "/metrics" || strings.HasSuffix(path, "/live") {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   time.Now(),
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := context.Background()
		p := rdb.Pipeline()
		p.Set(ctx, KeyLastReq, b, 0)
		p.Incr(ctx, KeyReqTotal)
		_, _ = p.Exec(ctx)

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		p = rdb.Pipeline()
		p.Incr(ctx, KeyResCount)
		p.IncrByFloat(ctx, KeyResTime, float64(ms))
		if serverError(c, err) {
			p.Incr(ctx, KeyReqErrors)
		}
		_, _ = p.Exec(ctx)
		return err
	}
}

func serverError(c *fiber.Ctx, err error) bool {
	if err == nil {
		return c.Response().StatusCode() >= fiber.StatusInternalServerError
	}
	var fe *fiber.Error
	return !errors.As(err, &fe) || fe.Code >= fiber.StatusInternalServerError
}
