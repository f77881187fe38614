package enrollment

import (
	"strings"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// TokenType is the scheme clients put in front of the access token.
const TokenType = "bearer"

// ============================================================================
// DTOs
// ============================================================================

// ResolveRequest asks which tenants an email belongs to.
type ResolveRequest struct {
	Email string `json:"email"`
}

// ResolveResponse carries either a single tenant or, when the domain is
// shared, the list the client must choose from.
type ResolveResponse struct {
	TenantID          *kernel.TenantID        `json:"tenant_id,omitempty"`
	TenantName        string                  `json:"tenant_name,omitempty"`
	Tenants           []tenancy.TenantSummary `json:"tenants,omitempty"`
	RequiresSelection bool                    `json:"requires_selection"`
}

// RegisterRequest submits ERP credentials for validation. erp_password_or_token
// is accepted as an alias of erp_secret.
type RegisterRequest struct {
	Email              string           `json:"email"`
	ERPUsername        string           `json:"erp_username"`
	ERPSecret          string           `json:"erp_secret"`
	ERPPasswordOrToken string           `json:"erp_password_or_token"`
	TenantID           *kernel.TenantID `json:"tenant_id"`
}

// Secret returns whichever secret field was sent.
func (r RegisterRequest) Secret() string {
	if r.ERPSecret != "" {
		return r.ERPSecret
	}
	return r.ERPPasswordOrToken
}

// Username returns the trimmed ERP username.
func (r RegisterRequest) Username() string {
	return strings.TrimSpace(r.ERPUsername)
}

// SwitchTenantRequest asks for a token on another tenant using stored credentials.
type SwitchTenantRequest struct {
	Email    string          `json:"email"`
	TenantID kernel.TenantID `json:"tenant_id"`
}

// TokenResponse is returned by register and switch-tenant.
type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	TenantID    kernel.TenantID `json:"tenant_id"`
	UserID      kernel.UserID   `json:"user_id"`
	Email       string          `json:"email"`
	ExpiresIn   int64           `json:"expires_in"`
}

// MeResponse describes the authenticated caller without any credential.
type MeResponse struct {
	User       *tenancy.User         `json:"user"`
	Tenant     tenancy.TenantSummary `json:"tenant"`
	Membership tenancy.MembershipDTO `json:"membership"`
}
