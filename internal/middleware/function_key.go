package middleware

import (
	"crypto/subtle"
	"strings"

	"marketplace-backend/internal/application/notifications"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FunctionKeyHeader carries the shared secret for /functions endpoints.
const FunctionKeyHeader = notifications.FunctionKeyHeader

// RequireFunctionKey rejects requests whose X-Functions-Key (or bearer token)
// does not match key. An empty key disables the endpoint.
func RequireFunctionKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return response.Unavailable(c, "Function is not configured")
		}
		got := c.Get(FunctionKeyHeader)
		if got == "" {
			got = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}
