package authinfra_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ auth.AttemptLimiter     = (*authinfra.RedisAttemptLimiter)(nil)
	_ auth.AttemptLimiter     = (*authinfra.MemoryAttemptLimiter)(nil)
	_ auth.AdminAuthenticator = (*authinfra.BcryptAdminAuthenticator)(nil)
	_ auth.AuditService       = (*authinfra.LogxAuditService)(nil)
)

func TestRedisAttemptLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	limiter := authinfra.NewRedisAttemptLimiter(client, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, auth.ScopeRegister, "Alice@acme.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
		require.NoError(t, limiter.RecordFailure(ctx, auth.ScopeRegister, "Alice@acme.com"))
	}

	ok, err := limiter.Allow(ctx, auth.ScopeRegister, "alice@acme.com")
	require.NoError(t, err)
	assert.False(t, ok)

	key := "auth:attempts:register:alice@acme.com"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// Other scopes are counted separately.
	ok, err = limiter.Allow(ctx, auth.ScopeSwitch, "alice@acme.com")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, auth.ScopeRegister, "alice@acme.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisAttemptLimiter_Reset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	limiter := authinfra.NewRedisAttemptLimiter(client, 1, time.Minute)

	require.NoError(t, limiter.RecordFailure(ctx, auth.ScopeAdminLogin, "root"))
	ok, _ := limiter.Allow(ctx, auth.ScopeAdminLogin, "root")
	assert.False(t, ok)

	require.NoError(t, limiter.Reset(ctx, auth.ScopeAdminLogin, "root"))
	ok, err := limiter.Allow(ctx, auth.ScopeAdminLogin, "root")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisAttemptLimiter_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	limiter := authinfra.NewRedisAttemptLimiter(client, 3, time.Minute)
	_, err := limiter.Allow(context.Background(), auth.ScopeRegister, "x")
	assert.Error(t, err)

	// The guard turns the outage into an allowed attempt.
	guard := auth.NewAttemptGuard(limiter)
	assert.NoError(t, guard.Check(context.Background(), auth.ScopeRegister, "x"))
}

func TestMemoryAttemptLimiter_WindowExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := authinfra.NewMemoryAttemptLimiter(2, 10*time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, auth.ScopeSwitch, "bob@x.io"))
	require.NoError(t, limiter.RecordFailure(ctx, auth.ScopeSwitch, "BOB@x.io"))
	ok, _ := limiter.Allow(ctx, auth.ScopeSwitch, "bob@x.io")
	assert.False(t, ok)

	now = now.Add(10 * time.Minute)
	ok, _ = limiter.Allow(ctx, auth.ScopeSwitch, "bob@x.io")
	assert.True(t, ok)
}

func TestBcryptAdminAuthenticator(t *testing.T) {
	hash, err := authinfra.HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	a := authinfra.NewBcryptAdminAuthenticator("admin", hash)
	assert.True(t, a.Authenticate("admin", "correct horse"))
	assert.False(t, a.Authenticate("admin", "wrong"))
	assert.False(t, a.Authenticate("root", "correct horse"))

	unconfigured := authinfra.NewBcryptAdminAuthenticator("admin", "")
	assert.False(t, unconfigured.Authenticate("admin", ""))
}

func TestLogxAuditService_WritesStructuredEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := logx.DefaultConfig()
	cfg.Format = logx.FormatJSON
	cfg.Output = buf
	prev := logx.GetDefaultLogger()
	logx.SetDefaultLogger(logx.NewLogger(cfg))
	defer logx.SetDefaultLogger(prev)

	ctx := context.WithValue(context.Background(), kernel.RequestIDKey, "req-1")
	authinfra.NewLogxAuditService().LogTenantSwitch(ctx, "a@acme.com", 7, 3, false, "STORED_CREDENTIALS_INVALID", "10.0.0.1")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "tenant_switch", out["audit_event"])
	assert.Equal(t, "7", out["tenant_id"])
	assert.Equal(t, "3", out["user_id"])
	assert.Equal(t, "STORED_CREDENTIALS_INVALID", out["code"])
	assert.Equal(t, "req-1", out["request_id"])
}
