package tenancy

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
)

const (
	DefaultAuthType  = "basic"
	DefaultTabulaINI = "tabula.ini"
	DefaultRole      = "user"
)

// ============================================================================
// Entities
// ============================================================================

// Tenant is an organization with its own ERP connection. The admin pair is
// stored as vault ciphertext and is never exposed through DTOs.
type Tenant struct {
	ID               kernel.TenantID `json:"id"`
	Name             string          `json:"name"`
	ERPBaseURL       string          `json:"erp_base_url"`
	ERPCompany       string          `json:"erp_company"`
	ERPAuthType      string          `json:"erp_auth_type"`
	ERPTabulaINI     string          `json:"erp_tabula_ini"`
	ERPAdminUsername string          `json:"-"`
	ERPAdminSecret   string          `json:"-"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TenantDomain maps an email domain to a tenant. A domain may map to many tenants.
type TenantDomain struct {
	ID        kernel.DomainID `json:"id"`
	TenantID  kernel.TenantID `json:"tenant_id"`
	Domain    string          `json:"domain"`
	CreatedAt time.Time       `json:"created_at"`
}

// User is a global identity keyed by email.
type User struct {
	ID          kernel.UserID `json:"id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name,omitempty"`
	Role        string        `json:"role"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// UserTenant grants a user access to one tenant and holds that user's
// encrypted ERP credentials for it.
type UserTenant struct {
	ID          kernel.UserTenantID `json:"id"`
	UserID      kernel.UserID       `json:"user_id"`
	TenantID    kernel.TenantID     `json:"tenant_id"`
	ERPUsername string              `json:"-"`
	ERPSecret   string              `json:"-"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// Validate checks the fields a tenant must carry before it is persisted.
func (t *Tenant) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidTenant().WithDetail("field", "name")
	}
	if t.IsActive {
		if strings.TrimSpace(t.ERPBaseURL) == "" {
			return ErrInvalidTenant().WithDetail("field", "erp_base_url")
		}
		if strings.TrimSpace(t.ERPCompany) == "" {
			return ErrInvalidTenant().WithDetail("field", "erp_company")
		}
	}
	return nil
}

// ApplyDefaults fills the optional ERP connection fields.
func (t *Tenant) ApplyDefaults() {
	t.ERPBaseURL = strings.TrimRight(strings.TrimSpace(t.ERPBaseURL), "/")
	if t.ERPAuthType == "" {
		t.ERPAuthType = DefaultAuthType
	}
	if t.ERPTabulaINI == "" {
		t.ERPTabulaINI = DefaultTabulaINI
	}
}

// Connection returns the ERP endpoint parameters of the tenant.
func (t *Tenant) Connection() erp.Connection {
	return erp.Connection{
		BaseURL:   t.ERPBaseURL,
		Company:   t.ERPCompany,
		TabulaINI: t.ERPTabulaINI,
		AuthType:  t.ERPAuthType,
	}
}

// HasAdminCredentials reports whether an encrypted admin pair is stored.
func (t *Tenant) HasAdminCredentials() bool {
	return t.ERPAdminUsername != "" && t.ERPAdminSecret != ""
}

// Summary returns the (id, name) pair shown to clients choosing a tenant.
func (t *Tenant) Summary() TenantSummary {
	return TenantSummary{ID: t.ID, Name: t.Name}
}

// HasStoredCredentials reports whether both encrypted values are present.
func (ut *UserTenant) HasStoredCredentials() bool {
	return ut.ERPUsername != "" && ut.ERPSecret != ""
}

// IsUsable reports whether user, tenant and association are all active.
func IsUsable(u *User, t *Tenant, ut *UserTenant) bool {
	return u != nil && t != nil && ut != nil && u.IsActive && t.IsActive && ut.IsActive
}

// NormalizeEmail trims and lower-cases an email and checks it holds exactly one '@'.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if strings.Count(e, "@") != 1 {
		return "", ErrInvalidEmail()
	}
	local, domain, _ := strings.Cut(e, "@")
	if local == "" || domain == "" {
		return "", ErrInvalidEmail()
	}
	return e, nil
}

// DomainFromEmail returns the lower-cased part after the single '@'.
func DomainFromEmail(email string) (string, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	_, domain, _ := strings.Cut(e, "@")
	return domain, nil
}

// NormalizeDomain lower-cases a domain and strips a leading '@'.
func NormalizeDomain(domain string) (string, error) {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
	if d == "" || strings.ContainsAny(d, "@ /") {
		return "", ErrInvalidDomain()
	}
	return d, nil
}

// ============================================================================
// DTOs
// ============================================================================

// TenantSummary is the (tenant id, name) pair offered during selection.
type TenantSummary struct {
	ID   kernel.TenantID `json:"tenant_id"`
	Name string          `json:"tenant_name"`
}

// CreateTenantRequest is the operator payload for a new tenant.
type CreateTenantRequest struct {
	Name             string   `json:"name"`
	ERPBaseURL       string   `json:"erp_base_url"`
	ERPCompany       string   `json:"erp_company"`
	ERPAuthType      string   `json:"erp_auth_type"`
	ERPTabulaINI     string   `json:"erp_tabula_ini"`
	ERPAdminUsername string   `json:"erp_admin_username"`
	ERPAdminSecret   string   `json:"erp_admin_password_or_token"`
	IsActive         *bool    `json:"is_active"`
	Domains          []string `json:"domains"`
}

// UpdateTenantRequest carries optional changes; nil fields are left alone.
type UpdateTenantRequest struct {
	Name             *string `json:"name"`
	ERPBaseURL       *string `json:"erp_base_url"`
	ERPCompany       *string `json:"erp_company"`
	ERPAuthType      *string `json:"erp_auth_type"`
	ERPTabulaINI     *string `json:"erp_tabula_ini"`
	ERPAdminUsername *string `json:"erp_admin_username"`
	ERPAdminSecret   *string `json:"erp_admin_password_or_token"`
	IsActive         *bool   `json:"is_active"`
}

// TouchesAdminCredentials reports whether the update changes the admin pair.
func (r UpdateTenantRequest) TouchesAdminCredentials() bool {
	return r.ERPAdminUsername != nil || r.ERPAdminSecret != nil
}

// TenantDTO is the operator view of a tenant.
type TenantDTO struct {
	Tenant
	HasAdminCredentials bool     `json:"has_admin_credentials"`
	Domains             []string `json:"domains"`
}

// AddDomainRequest attaches a domain to a tenant.
type AddDomainRequest struct {
	TenantID kernel.TenantID `json:"tenant_id"`
	Domain   string          `json:"domain"`
}

// UpdateUserRequest carries optional changes to a global user.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

// MembershipDTO describes one association without its credentials.
type MembershipDTO struct {
	TenantID       kernel.TenantID `json:"tenant_id"`
	TenantName     string          `json:"tenant_name"`
	TenantActive   bool            `json:"tenant_active"`
	IsActive       bool            `json:"is_active"`
	HasCredentials bool            `json:"has_credentials"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ValidateCredentialsRequest asks for an admin probe. Without an explicit
// pair the tenant's stored admin credentials are used.
type ValidateCredentialsRequest struct {
	TenantID         kernel.TenantID `json:"tenant_id"`
	ERPAdminUsername string          `json:"erp_admin_username"`
	ERPAdminSecret   string          `json:"erp_admin_password_or_token"`
}

// ValidateCredentialsResponse reports the classified probe outcome.
type ValidateCredentialsResponse struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("")

var (
	CodeInvalidEmail             = ErrRegistry.Register("INVALID_EMAIL", errx.TypeValidation, http.StatusBadRequest, "Invalid email format")
	CodeInvalidDomain            = ErrRegistry.Register("INVALID_DOMAIN", errx.TypeValidation, http.StatusBadRequest, "Invalid email domain")
	CodeInvalidTenant            = ErrRegistry.Register("INVALID_TENANT", errx.TypeValidation, http.StatusBadRequest, "Tenant configuration is incomplete")
	CodeTenantNotFound           = ErrRegistry.Register("TENANT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No active tenant is configured for this email domain")
	CodeTenantInactive           = ErrRegistry.Register("TENANT_INACTIVE", errx.TypeAuthorization, http.StatusUnauthorized, "Tenant not found or inactive")
	CodeTenantSelectionRequired  = ErrRegistry.Register("TENANT_SELECTION_REQUIRED", errx.TypeValidation, http.StatusBadRequest, "Multiple tenants match this email domain; a tenant must be selected")
	CodeInvalidTenantSelection   = ErrRegistry.Register("INVALID_TENANT_SELECTION", errx.TypeValidation, http.StatusBadRequest, "The selected tenant is not available for this email")
	CodeDomainNotFound           = ErrRegistry.Register("DOMAIN_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Domain mapping not found")
	CodeUserNotFound             = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeUserInactive             = ErrRegistry.Register("USER_INACTIVE", errx.TypeAuthorization, http.StatusUnauthorized, "User not found or inactive")
	CodeAssociationNotFound      = ErrRegistry.Register("ASSOCIATION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User is not associated with this tenant")
	CodeAssociationInactive      = ErrRegistry.Register("ASSOCIATION_INACTIVE", errx.TypeForbidden, http.StatusForbidden, "Access to this tenant is not active for the user")
	CodeConflict                 = ErrRegistry.Register("CONFLICT", errx.TypeConflict, http.StatusConflict, "Resource already exists")
	CodeAdminCredentialsMissing  = ErrRegistry.Register("ADMIN_CREDENTIALS_MISSING", errx.TypeBusiness, http.StatusUnprocessableEntity, "Tenant has no usable admin ERP credentials")
	CodeNoStoredCredentials      = ErrRegistry.Register("NO_STORED_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "No stored ERP credentials for this tenant; register first")
	CodeStoredCredentialsInvalid = ErrRegistry.Register("STORED_CREDENTIALS_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Stored ERP credentials were rejected; register again")
)

func ErrInvalidEmail() *errx.Error            { return ErrRegistry.New(CodeInvalidEmail) }
func ErrInvalidDomain() *errx.Error           { return ErrRegistry.New(CodeInvalidDomain) }
func ErrInvalidTenant() *errx.Error           { return ErrRegistry.New(CodeInvalidTenant) }
func ErrTenantNotFound() *errx.Error          { return ErrRegistry.New(CodeTenantNotFound) }
func ErrTenantInactive() *errx.Error          { return ErrRegistry.New(CodeTenantInactive) }
func ErrTenantSelectionRequired() *errx.Error { return ErrRegistry.New(CodeTenantSelectionRequired) }
func ErrInvalidTenantSelection() *errx.Error  { return ErrRegistry.New(CodeInvalidTenantSelection) }
func ErrDomainNotFound() *errx.Error          { return ErrRegistry.New(CodeDomainNotFound) }
func ErrUserNotFound() *errx.Error            { return ErrRegistry.New(CodeUserNotFound) }
func ErrUserInactive() *errx.Error            { return ErrRegistry.New(CodeUserInactive) }
func ErrAssociationNotFound() *errx.Error     { return ErrRegistry.New(CodeAssociationNotFound) }
func ErrAssociationInactive() *errx.Error     { return ErrRegistry.New(CodeAssociationInactive) }
func ErrAdminCredentialsMissing() *errx.Error { return ErrRegistry.New(CodeAdminCredentialsMissing) }
func ErrNoStoredCredentials() *errx.Error     { return ErrRegistry.New(CodeNoStoredCredentials) }
func ErrStoredCredentialsInvalid() *errx.Error {
	return ErrRegistry.New(CodeStoredCredentialsInvalid)
}

// ErrConflict reports a uniqueness violation; reason names the violated pair.
func ErrConflict(reason string) *errx.Error {
	return ErrRegistry.New(CodeConflict).WithDetail("reason", reason)
}
