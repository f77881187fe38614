// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis) and composes
// bounded-context containers. This is the only place that knows about ALL modules.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/asyncx"
	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/Abraxas-365/filesmile/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	if c.Config.Database.StoreMode == config.StoreModePostgres {
		db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
		c.DB = db
		logx.Info("  ✅ Database connected")
	}

	// 2. Redis, only the attempt limiter needs it
	if c.Config.Limiter.Mode == config.LimiterModeRedis {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.Redis.Ping(ctx).Result(); err != nil {
			// the limiter fails open, so a missing Redis is not fatal
			logx.Warnf("Redis is unreachable at startup: %v", err)
		} else {
			logx.Info("  ✅ Redis connected")
		}
	}

	logx.Info("✅ Infrastructure initialized")
}

// ---------------------------------------------------------------------------
// Module composition: each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	iam, err := iamcontainer.New(context.Background(), iamcontainer.Deps{
		DB:    c.DB,
		Redis: c.Redis,
		Cfg:   c.Config,
	})
	if err != nil {
		logx.Fatalf("Failed to initialize identity module: %v", err)
	}
	c.IAM = iam
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Health pings every backend the running configuration depends on, concurrently.
func (c *Container) Health(ctx context.Context) map[string]error {
	names := []string{"store"}
	probes := []func(context.Context) (struct{}, error){
		func(ctx context.Context) (struct{}, error) { return struct{}{}, c.IAM.Store.Ping(ctx) },
	}
	if c.Redis != nil {
		names = append(names, "redis")
		probes = append(probes, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.Redis.Ping(ctx).Err()
		})
	}

	checks := make(map[string]error, len(names))
	for i, r := range asyncx.AllSettled(ctx, probes...) {
		checks[names[i]] = r.Err
	}
	return checks
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
