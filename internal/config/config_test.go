package config_test

import (
	"testing"

	"matchchat/backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, _ := config.Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL, "empty DSN selects the memory store")
	assert.Equal(t, 0, cfg.RedisDB, "invalid integers fall back to the default")
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "matchchat", cfg.JWTIssuer)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, _ := config.Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestRoomLifetimeIsFourDays(t *testing.T) {
	assert.Equal(t, 96, int(config.RoomLifetime.Hours()))
}
