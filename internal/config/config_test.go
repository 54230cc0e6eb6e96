package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SITE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("API_URL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 20, cfg.PageSize)
	assert.InDelta(t, 0.3, cfg.SearchThreshold, 1e-9)
	assert.Equal(t, "redis", cfg.ChangeFeedDriver)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SITE_URL", "https://market.example.com/")
	t.Setenv("CHANGEFEED_DRIVER", "NATS")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL_TEST", "postgres://test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://market.example.com", cfg.FrontendURL)
	assert.Equal(t, "nats", cfg.ChangeFeedDriver)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres://test", cfg.DatabaseURL)
}
