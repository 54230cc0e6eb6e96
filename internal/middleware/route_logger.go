package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RouteLogger logs each request on entry (debug) and exit with status and duration.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := Logger(c)
		start := time.Now()
		l.Debug().Str("method", c.Method()).Str("path", c.Path()).Msg("request start")

		err := c.Next()

		status := c.Response().StatusCode()
		ev := l.Info()
		if err != nil || status >= fiber.StatusInternalServerError {
			ev = l.Warn().Err(err)
		}
		if uid, ok := CurrentUserID(c); ok {
			ev = ev.Str("user_id", uid.String())
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request done")
		return err
	}
}
