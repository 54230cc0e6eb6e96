package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig decides which browser origins may call the API with credentials.
type CORSConfig struct {
	// FrontendOrigin is matched exactly, e.g. https://market.example.com.
	FrontendOrigin string
	// AllowedSuffix admits preview deployments, e.g. -market.vercel.app.
	AllowedSuffix string
	// DevPassword admits any origin that sends it in the dev-password header.
	DevPassword string
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	o := strings.ToLower(origin)
	switch {
	case cfg.FrontendOrigin != "" && o == strings.ToLower(strings.TrimRight(cfg.FrontendOrigin, "/")):
		return true
	case cfg.AllowedSuffix != "" && strings.HasSuffix(o, strings.ToLower(cfg.AllowedSuffix)):
		return true
	case cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword:
		return true
	}
	return false
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

// CORS admits requests without an Origin, answers local preflights and
// rejects other origins with 403 in the error envelope.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		preflight := c.Method() == fiber.MethodOptions
		if preflight && (isLocalOrigin(origin) || cfg.allows(c, origin)) {
			setCORSHeaders(c, origin)
			return c.SendStatus(fiber.StatusNoContent)
		}
		if !cfg.allows(c, origin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error",
				"error": fiber.Map{
					"message":    "Not allowed by CORS",
					"statusCode": fiber.StatusForbidden,
					"details":    fiber.Map{},
				},
			})
		}
		setCORSHeaders(c, origin)
		return c.Next()
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type, dev-password, "+traceIDHeader+", "+FunctionKeyHeader)
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PATCH, DELETE, OPTIONS")
	c.Set(fiber.HeaderAccessControlExposeHeaders, traceIDHeader)
	c.Vary(fiber.HeaderOrigin)
}
