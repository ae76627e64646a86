package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisade-sh/palisade/internal/app"
	"github.com/palisade-sh/palisade/internal/authz"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, authz.ModeRelax, cfg.Mode())
	assert.Equal(t, "ADMIN", cfg.AdminRoleCode)

	cc := cfg.CacheConfig()
	assert.Equal(t, 16384, cc.DecisionsSize)
	assert.Equal(t, 30*time.Second, cc.DecisionsTTL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTHZ_MODE", "strict")
	t.Setenv("AUTHZ_ADMIN_ROLE", "SUPERVISOR")
	t.Setenv("AUTHZ_CACHE_DECISIONS_TTL", "5s")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, authz.ModeStrict, cfg.Mode())
	assert.Equal(t, "SUPERVISOR", cfg.AdminRoleCode)
	assert.Equal(t, 5*time.Second, cfg.CacheConfig().DecisionsTTL)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "open")
	_, err := app.LoadConfig()
	assert.Error(t, err)
}
