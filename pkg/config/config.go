package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/errx"
)

// Config holds every setting the broker reads from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Vault    VaultConfig
	ERP      ERPConfig
	Limiter  LimiterConfig
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Auth:     loadAuthConfig(),
		Vault:    loadVaultConfig(),
		ERP:      loadERPConfig(),
		Limiter:  loadLimiterConfig(),
	}
}

// Validate fails when a required secret is missing or a mode is unknown.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.Vault.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return errx.Validation("missing required configuration").
			WithDetail("missing", strings.Join(missing, ","))
	}

	if c.Auth.AdminJWTSecret == c.Auth.JWTSecret {
		return errx.Validation("ADMIN_JWT_SECRET_KEY must differ from JWT_SECRET_KEY")
	}

	switch c.Database.StoreMode {
	case StoreModePostgres, StoreModeMemory:
	default:
		return errx.Validation(fmt.Sprintf("unknown STORE_MODE %q", c.Database.StoreMode))
	}

	switch c.Limiter.Mode {
	case LimiterModeRedis, LimiterModeMemory, LimiterModeOff:
	default:
		return errx.Validation(fmt.Sprintf("unknown LIMITER_MODE %q", c.Limiter.Mode))
	}

	if c.Auth.TokenTTL <= 0 || c.Auth.AdminTokenTTL <= 0 {
		return errx.Validation("token lifetimes must be positive")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

type ServerConfig struct {
	Port        string
	CORSOrigins string
	Debug       bool
	APIPrefix   string
	Version     string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Debug:       getEnvBool("DEBUG", false),
		APIPrefix:   strings.TrimRight(getEnv("API_PREFIX", "/api/v1"), "/"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
	}
}

// ---------------------------------------------------------------------------
// Database
// ---------------------------------------------------------------------------

const (
	StoreModePostgres = "postgres"
	StoreModeMemory   = "memory"
)

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	StoreMode       string
	EnsureSchema    bool
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "filesmile"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		StoreMode:       strings.ToLower(getEnv("STORE_MODE", StoreModePostgres)),
		EnsureSchema:    getEnvBool("DB_ENSURE_SCHEMA", true),
	}
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns host:port
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	Issuer            string
	AdminJWTSecret    string
	AdminTokenTTL     time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:         getEnv("JWT_SECRET_KEY", ""),
		TokenTTL:          time.Duration(getEnvInt("JWT_EXPIRE_MINUTES", 1440)) * time.Minute,
		Issuer:            getEnv("JWT_ISSUER", "filesmile"),
		AdminJWTSecret:    getEnv("ADMIN_JWT_SECRET_KEY", getEnv("SECRET_KEY", "")),
		AdminTokenTTL:     time.Duration(getEnvInt("ADMIN_JWT_EXPIRE_MINUTES", 480)) * time.Minute,
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}
}

// ---------------------------------------------------------------------------
// Vault
// ---------------------------------------------------------------------------

type VaultConfig struct {
	EncryptionKey string
}

func loadVaultConfig() VaultConfig {
	return VaultConfig{EncryptionKey: getEnv("ENCRYPTION_KEY", "")}
}

// ---------------------------------------------------------------------------
// ERP
// ---------------------------------------------------------------------------

type ERPConfig struct {
	AppID              string
	AppKey             string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

func loadERPConfig() ERPConfig {
	return ERPConfig{
		AppID:              getEnv("ERP_APP_ID", "APP044"),
		AppKey:             getEnv("ERP_APP_KEY", ""),
		Timeout:            getEnvDuration("ERP_TIMEOUT", 15*time.Second),
		InsecureSkipVerify: getEnvBool("ERP_INSECURE_SKIP_VERIFY", false),
	}
}

// ---------------------------------------------------------------------------
// Attempt limiter
// ---------------------------------------------------------------------------

const (
	LimiterModeRedis  = "redis"
	LimiterModeMemory = "memory"
	LimiterModeOff    = "off"
)

type LimiterConfig struct {
	Mode        string
	MaxAttempts int
	Window      time.Duration
}

func loadLimiterConfig() LimiterConfig {
	return LimiterConfig{
		Mode:        strings.ToLower(getEnv("LIMITER_MODE", LimiterModeRedis)),
		MaxAttempts: getEnvInt("AUTH_MAX_FAILED_ATTEMPTS", 5),
		Window:      getEnvDuration("AUTH_FAILED_ATTEMPT_WINDOW", 15*time.Minute),
	}
}
