package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "roster", cfg.Database.Name)
	assert.False(t, cfg.QueryCache.Enabled)
	assert.Equal(t, time.Minute, cfg.QueryCache.TTL)
	assert.Equal(t, "password", cfg.Roster.DefaultTeacherPassword)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENABLE_QUERY_CACHE", "true")
	t.Setenv("QUERY_CACHE_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.QueryCache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.QueryCache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Hour, parseDuration("", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("nonsense", time.Hour))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Hour))
}
