package config

import (
	"testing"
	"time"

	"excelviz/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "STORAGE_DIR", "UPLOAD_DIR", "MAX_UPLOAD_MB",
		"DEFAULT_THEME", "RESTORE_SETTLE_TIMEOUT", "SESSION_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "./user_projects", cfg.Storage.Dir)
	assert.Equal(t, "./user_projects/uploads", cfg.Storage.UploadDir)
	assert.Equal(t, int64(32<<20), cfg.Storage.MaxUploadBytes())
	assert.Equal(t, "default", cfg.Charts.DefaultTheme)
	assert.Equal(t, 5*time.Second, cfg.Charts.SettleTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Charts.SessionTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/excelviz")
	t.Setenv("DEFAULT_THEME", "neon")
	t.Setenv("RESTORE_SETTLE_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "neon", cfg.Charts.DefaultTheme)
	assert.Equal(t, 750*time.Millisecond, cfg.Charts.SettleTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsUnknownTheme(t *testing.T) {
	t.Setenv("DEFAULT_THEME", "sepia")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
