package iamcontainer

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/Abraxas-365/filesmile/pkg/erp/erpclient"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment/enrollmentapi"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment/enrollmentsrv"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyapi"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// DB is nil in memory store mode; Redis is nil unless the limiter uses it.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config
}

// ---------------------------------------------------------------------------
// Container: the public surface of the identity broker.
// ---------------------------------------------------------------------------

type Container struct {
	Store tenancy.Store

	// Services
	Directory    *tenancysrv.DirectoryService
	Enrollment   *enrollmentsrv.Service
	TokenService auth.TokenService

	// Handlers
	EnrollmentHandlers *enrollmentapi.EnrollmentHandlers
	AdminHandlers      *auth.AdminHandlers
	DirectoryHandlers  *tenancyapi.DirectoryHandlers

	// Middleware
	Gate *auth.Gate
}

// ---------------------------------------------------------------------------
// New: constructs the broker dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(ctx context.Context, deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing identity container...")

	cfg := deps.Cfg
	c := &Container{}

	// ── Store ────────────────────────────────────────────────────────────

	switch cfg.Database.StoreMode {
	case config.StoreModeMemory:
		c.Store = tenancyinfra.NewMemoryStore()
		logx.Warn("  ⚠️  Using in-memory store (data is lost on restart)")
	default:
		if deps.DB == nil {
			return nil, errx.Internal("postgres store mode requires a database connection")
		}
		if cfg.Database.EnsureSchema {
			if err := tenancyinfra.EnsureSchema(ctx, deps.DB); err != nil {
				return nil, err
			}
			logx.Info("  ✅ Database schema ensured")
		}
		c.Store = tenancyinfra.NewPostgresStore(deps.DB)
	}

	// ── Infrastructure services ──────────────────────────────────────────

	v, err := vault.New(cfg.Vault.EncryptionKey)
	if err != nil {
		return nil, err
	}

	gateway := erpclient.New(erpclient.Options{
		AppID:              cfg.ERP.AppID,
		AppKey:             cfg.ERP.AppKey,
		Timeout:            cfg.ERP.Timeout,
		InsecureSkipVerify: cfg.ERP.InsecureSkipVerify,
	})

	c.TokenService = auth.NewJWTService(auth.JWTOptions{
		UserSecret:  cfg.Auth.JWTSecret,
		AdminSecret: cfg.Auth.AdminJWTSecret,
		UserTTL:     cfg.Auth.TokenTTL,
		AdminTTL:    cfg.Auth.AdminTokenTTL,
		Issuer:      cfg.Auth.Issuer,
	})

	var limiter auth.AttemptLimiter
	switch cfg.Limiter.Mode {
	case config.LimiterModeRedis:
		if deps.Redis == nil {
			return nil, errx.Internal("redis limiter mode requires a redis client")
		}
		limiter = authinfra.NewRedisAttemptLimiter(deps.Redis, cfg.Limiter.MaxAttempts, cfg.Limiter.Window)
		logx.Info("  ✅ Using Redis attempt limiter")
	case config.LimiterModeMemory:
		limiter = authinfra.NewMemoryAttemptLimiter(cfg.Limiter.MaxAttempts, cfg.Limiter.Window)
		logx.Warn("  ⚠️  Using in-memory attempt limiter (not shared across instances)")
	default:
		logx.Warn("  ⚠️  Failed-attempt limiter disabled")
	}
	guard := auth.NewAttemptGuard(limiter)

	auditService := authinfra.NewLogxAuditService()

	if cfg.Auth.AdminPasswordHash == "" {
		logx.Warn("  ⚠️  ADMIN_PASSWORD_HASH is empty; admin login is disabled")
	}
	adminAuth := authinfra.NewBcryptAdminAuthenticator(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash)

	// ── Domain services ──────────────────────────────────────────────────

	credentials := tenancysrv.NewCredentialResolver(v)
	resolver := tenancysrv.NewResolver(c.Store.Tenants())

	c.Directory = tenancysrv.NewDirectoryService(c.Store, credentials, gateway)

	c.Enrollment = enrollmentsrv.NewService(
		c.Store,
		resolver,
		credentials,
		gateway,
		c.TokenService,
		guard,
		auditService,
	)

	// ── Middleware ────────────────────────────────────────────────────────

	c.Gate = auth.NewGate(c.TokenService, c.Store, auditService)

	// ── Handlers ─────────────────────────────────────────────────────────

	c.EnrollmentHandlers = enrollmentapi.NewEnrollmentHandlers(c.Enrollment, c.Gate)
	c.AdminHandlers = auth.NewAdminHandlers(adminAuth, c.TokenService, guard, auditService)
	c.DirectoryHandlers = tenancyapi.NewDirectoryHandlers(c.Directory)

	logx.Info("✅ Identity container initialized")
	return c, nil
}
