// Package bootstrap builds the API for the serverless entry in api/, which
// cannot import internal packages directly.
package bootstrap

import (
	"fmt"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/interfaces/router"
	"marketplace-backend/internal/platform/logger"

	"github.com/gofiber/fiber/v2"
)

// New loads configuration, sets up logging and returns the mounted app.
// Serverless instances are frozen rather than stopped, so the runtime
// behind the app is never closed.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	logger.Setup(cfg.Env, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	app, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app create: %w", err)
	}
	return app, nil
}
