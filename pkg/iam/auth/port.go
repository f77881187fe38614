package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
)

// TokenService defines the contract for JWT token management
type TokenService interface {
	IssueUserToken(userID kernel.UserID, tenantID kernel.TenantID, email string) (IssuedToken, error)
	IssueAdminToken(username string) (IssuedToken, error)
	VerifyUser(token string) (*Claims, error)
	VerifyAdmin(token string) (*Claims, error)
	UserTTL() time.Duration
	AdminTTL() time.Duration
}

// AuditService defines the contract for authentication audit logging.
// Implementations must never receive plaintext credentials.
type AuditService interface {
	LogRegistration(ctx context.Context, email string, tenantID kernel.TenantID, userID kernel.UserID, success bool, code string, ip string)
	LogTenantSwitch(ctx context.Context, email string, tenantID kernel.TenantID, userID kernel.UserID, success bool, code string, ip string)
	LogGateRejection(ctx context.Context, code string, path string, ip string)
	LogAdminLogin(ctx context.Context, username string, success bool, ip string)
}

// Limiter scopes
const (
	ScopeRegister   = "register"
	ScopeSwitch     = "switch"
	ScopeAdminLogin = "admin_login"
)

// AttemptLimiter counts failed credential attempts per (scope, subject).
// Allow reports whether another attempt may proceed.
type AttemptLimiter interface {
	Allow(ctx context.Context, scope, subject string) (bool, error)
	RecordFailure(ctx context.Context, scope, subject string) error
	Reset(ctx context.Context, scope, subject string) error
}

// AdminAuthenticator checks operator credentials
type AdminAuthenticator interface {
	Authenticate(username, password string) bool
}
