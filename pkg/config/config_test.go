package config_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "user-secret")
	t.Setenv("SECRET_KEY", "admin-secret")
	t.Setenv("ENCRYPTION_KEY", "master")

	cfg := config.Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 8*time.Hour, cfg.Auth.AdminTokenTTL)
	assert.Equal(t, "admin-secret", cfg.Auth.AdminJWTSecret)
	assert.Equal(t, "APP044", cfg.ERP.AppID)
	assert.Equal(t, 15*time.Second, cfg.ERP.Timeout)
	assert.Equal(t, 5, cfg.Limiter.MaxAttempts)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "user-secret")
	t.Setenv("ADMIN_JWT_SECRET_KEY", "admin-secret")
	t.Setenv("ENCRYPTION_KEY", "master")
	t.Setenv("JWT_EXPIRE_MINUTES", "60")
	t.Setenv("ERP_TIMEOUT", "3")
	t.Setenv("STORE_MODE", "MEMORY")
	t.Setenv("LIMITER_MODE", "memory")

	cfg := config.Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.ERP.Timeout)
	assert.Equal(t, config.StoreModeMemory, cfg.Database.StoreMode)
}

func TestValidate_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("ENCRYPTION_KEY", "")

	err := config.Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration")
}

func TestValidate_SharedSigningKeyRejected(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "same")
	t.Setenv("ADMIN_JWT_SECRET_KEY", "same")
	t.Setenv("ENCRYPTION_KEY", "master")

	assert.Error(t, config.Load().Validate())
}
