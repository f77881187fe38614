package iamcontainer_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/Abraxas-365/filesmile/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := config.Load()
	cfg.Database.StoreMode = config.StoreModeMemory
	cfg.Limiter.Mode = config.LimiterModeMemory
	cfg.Auth.JWTSecret = "user-secret"
	cfg.Auth.AdminJWTSecret = "admin-secret"
	cfg.Vault.EncryptionKey = "master"
	return cfg
}

func TestNew_MemoryMode(t *testing.T) {
	c, err := iamcontainer.New(context.Background(), iamcontainer.Deps{Cfg: memoryConfig()})
	require.NoError(t, err)

	assert.IsType(t, &tenancyinfra.MemoryStore{}, c.Store)
	assert.NotNil(t, c.Gate)
	assert.NotNil(t, c.EnrollmentHandlers)
	assert.NotNil(t, c.AdminHandlers)
	assert.NotNil(t, c.DirectoryHandlers)
	assert.NoError(t, c.Store.Ping(context.Background()))
}

func TestNew_MissingBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.Limiter.Mode = config.LimiterModeRedis
	_, err := iamcontainer.New(context.Background(), iamcontainer.Deps{Cfg: cfg})
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.Database.StoreMode = config.StoreModePostgres
	_, err = iamcontainer.New(context.Background(), iamcontainer.Deps{Cfg: cfg})
	assert.Error(t, err)
}
