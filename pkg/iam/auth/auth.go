package auth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenKind separates end-user tokens from operator tokens. Each
// verification path accepts exactly one kind.
type TokenKind string

const (
	KindUser  TokenKind = "user"
	KindAdmin TokenKind = "admin"
)

// Claims is the verified content of a token. UserID, TenantID and Email are
// set for user tokens; AdminName for admin tokens.
type Claims struct {
	Kind      TokenKind
	UserID    kernel.UserID
	TenantID  kernel.TenantID
	Email     string
	AdminName string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a signed token with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// ExpiresIn returns the lifetime in whole seconds, the unit clients expect.
func (t IssuedToken) ExpiresIn() int64 {
	return int64(t.TTL / time.Second)
}

// AuthContext converts verified claims into the request-scoped kernel context.
func (c *Claims) AuthContext() *kernel.AuthContext {
	if c.Kind == KindAdmin {
		return &kernel.AuthContext{Kind: kernel.PrincipalAdmin, AdminName: c.AdminName}
	}
	return &kernel.AuthContext{
		Kind:     kernel.PrincipalUser,
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Email:    c.Email,
	}
}

// Principal is the (user, tenant, association) triple the gate loaded for
// the current request. It is never cached across requests.
type Principal struct {
	Claims     *Claims
	User       *tenancy.User
	Tenant     *tenancy.Tenant
	Membership *tenancy.UserTenant
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
)

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}
