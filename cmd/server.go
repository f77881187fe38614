package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// 1. Initialize Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Info("🚀 Starting Filesmile identity broker...")

	// 2. Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	// 3. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 4. Build the HTTP app and start with graceful shutdown
	app := newApp(container)
	printRouteSummary(cfg.Server.APIPrefix)
	startServer(app, cfg.Server.Port)
}

// newApp builds the fiber app with global middleware and every route mounted.
func newApp(container *Container) *fiber.App {
	cfg := container.Config

	app := fiber.New(fiber.Config{
		AppName:               "Filesmile Identity Broker",
		DisableStartupMessage: true,
		ErrorHandler:          errx.FiberErrorHandler(cfg.Server.Debug),
		BodyLimit:             1 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestContext)

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(cfg))

	// Routes
	api := app.Group(cfg.Server.APIPrefix)

	// /auth/tenant/resolve, /auth/register, /auth/switch-tenant, /auth/me, /auth/tenants
	container.IAM.EnrollmentHandlers.RegisterRoutes(api.Group("/auth"))

	// /admin/login
	container.IAM.AdminHandlers.RegisterRoutes(api.Group("/admin"))

	// /admin/tenants, /admin/domains, /admin/users, /admin/validate-credentials
	container.IAM.DirectoryHandlers.RegisterRoutes(api, container.IAM.Gate)

	app.Use(notFoundHandler)
	return app
}

// ============================================================================
// Middleware
// ============================================================================

// requestContext copies the request id into the user context so services
// and the audit log can correlate their entries.
func requestContext(c *fiber.Ctx) error {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		c.SetUserContext(context.WithValue(c.UserContext(), kernel.RequestIDKey, rid))
	}
	return c.Next()
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler reports 503 only when the directory store is down.
// Redis being unreachable degrades the limiter, which fails open.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		health := fiber.Map{
			"status":  "healthy",
			"service": "filesmile-identity",
			"version": container.Config.Server.Version,
		}
		status := fiber.StatusOK

		for name, err := range container.Health(ctx) {
			if err == nil {
				health[name] = "healthy"
				continue
			}
			health[name] = "unhealthy"
			health[name+"_error"] = err.Error()
			if name == "store" {
				health["status"] = "unhealthy"
				status = fiber.StatusServiceUnavailable
			} else if status == fiber.StatusOK {
				health["status"] = "degraded"
			}
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(cfg *config.Config) fiber.Handler {
	prefix := cfg.Server.APIPrefix
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Filesmile Identity Broker",
			"version":     cfg.Server.Version,
			"description": "Multi-tenant identity resolution and ERP credential vault",
			"endpoints": fiber.Map{
				"resolve":       "POST " + prefix + "/auth/tenant/resolve",
				"register":      "POST " + prefix + "/auth/register",
				"switch_tenant": "POST " + prefix + "/auth/switch-tenant",
				"me":            "GET " + prefix + "/auth/me",
				"tenants":       "GET " + prefix + "/auth/tenants",
				"admin_login":   "POST " + prefix + "/admin/login",
				"health":        "GET /health",
			},
		})
	}
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

// ============================================================================
// Server lifecycle
// ============================================================================

// printRouteSummary prints a summary of registered routes
func printRouteSummary(prefix string) {
	logx.Info("📋 Route Summary:")
	logx.Infof("   ├─ Auth: %s/auth/*", prefix)
	logx.Infof("   ├─ Admin: %s/admin/*", prefix)
	logx.Info("   └─ Health: /health")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, port string) {
	go func() {
		logx.Info(strings.Repeat("=", 61))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info(strings.Repeat("=", 61))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
