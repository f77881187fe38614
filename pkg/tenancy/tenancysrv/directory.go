package tenancysrv

import (
	"context"
	"strings"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// DirectoryService is the operator-facing side of the Tenant Directory.
type DirectoryService struct {
	store   tenancy.Store
	creds   *CredentialResolver
	gateway erp.Gateway
}

func NewDirectoryService(store tenancy.Store, creds *CredentialResolver, gateway erp.Gateway) *DirectoryService {
	return &DirectoryService{store: store, creds: creds, gateway: gateway}
}

// ============================================================================
// Tenants
// ============================================================================

// CreateTenant creates a tenant and its domains in one transaction. An admin
// pair, when given, must pass the ERP admin probe before it is encrypted.
func (s *DirectoryService) CreateTenant(ctx context.Context, req tenancy.CreateTenantRequest) (*tenancy.TenantDTO, error) {
	t := &tenancy.Tenant{
		Name:         strings.TrimSpace(req.Name),
		ERPBaseURL:   req.ERPBaseURL,
		ERPCompany:   strings.TrimSpace(req.ERPCompany),
		ERPAuthType:  req.ERPAuthType,
		ERPTabulaINI: req.ERPTabulaINI,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	domains, err := normalizeDomains(req.Domains)
	if err != nil {
		return nil, err
	}

	if err := s.setAdminCredentials(ctx, t, req.ERPAdminUsername, req.ERPAdminSecret); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		if err := repos.Tenants().Create(ctx, t); err != nil {
			return err
		}
		for _, d := range domains {
			if err := repos.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: t.ID, Domain: d}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"tenant_id": t.ID.String(),
		"name":      t.Name,
		"domains":   strings.Join(domains, ","),
	}).Info("Tenant created")

	return &tenancy.TenantDTO{Tenant: *t, HasAdminCredentials: t.HasAdminCredentials(), Domains: domains}, nil
}

// GetTenant returns a tenant with its domains.
func (s *DirectoryService) GetTenant(ctx context.Context, id kernel.TenantID) (*tenancy.TenantDTO, error) {
	t, err := s.store.Tenants().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, t)
}

// ListTenants returns a page of tenants with their domains.
func (s *DirectoryService) ListTenants(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[*tenancy.TenantDTO], error) {
	page, err := s.store.Tenants().List(ctx, opts)
	if err != nil {
		return kernel.Paginated[*tenancy.TenantDTO]{}, err
	}

	items := make([]*tenancy.TenantDTO, 0, len(page.Items))
	for _, t := range page.Items {
		dto, err := s.toDTO(ctx, t)
		if err != nil {
			return kernel.Paginated[*tenancy.TenantDTO]{}, err
		}
		items = append(items, dto)
	}
	return kernel.NewPaginated(items, page.Page.Number, page.Page.Size, page.Page.Total), nil
}

// UpdateTenant applies the non-nil fields of req. Changing the admin pair
// re-runs the admin probe against the updated connection.
func (s *DirectoryService) UpdateTenant(ctx context.Context, id kernel.TenantID, req tenancy.UpdateTenantRequest) (*tenancy.TenantDTO, error) {
	t, err := s.store.Tenants().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.ERPBaseURL != nil {
		t.ERPBaseURL = *req.ERPBaseURL
	}
	if req.ERPCompany != nil {
		t.ERPCompany = strings.TrimSpace(*req.ERPCompany)
	}
	if req.ERPAuthType != nil {
		t.ERPAuthType = *req.ERPAuthType
	}
	if req.ERPTabulaINI != nil {
		t.ERPTabulaINI = *req.ERPTabulaINI
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if req.TouchesAdminCredentials() {
		if req.ERPAdminUsername == nil || req.ERPAdminSecret == nil {
			return nil, tenancy.ErrInvalidTenant().
				WithDetail("field", "erp_admin_username,erp_admin_password_or_token").
				WithDetail("reason", "admin username and secret must be changed together")
		}
		if err := s.setAdminCredentials(ctx, t, *req.ERPAdminUsername, *req.ERPAdminSecret); err != nil {
			return nil, err
		}
	}

	if err := s.store.Tenants().Update(ctx, t); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"tenant_id":         t.ID.String(),
		"is_active":         t.IsActive,
		"admin_creds_reset": req.TouchesAdminCredentials(),
	}).Info("Tenant updated")

	return s.toDTO(ctx, t)
}

// DeleteTenant removes the associations, the domains and then the tenant,
// all in one transaction.
func (s *DirectoryService) DeleteTenant(ctx context.Context, id kernel.TenantID) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		if _, err := repos.Tenants().FindByID(ctx, id); err != nil {
			return err
		}
		if err := repos.UserTenants().DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := repos.Domains().DeleteByTenant(ctx, id); err != nil {
			return err
		}
		return repos.Tenants().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logx.WithField("tenant_id", id.String()).Info("Tenant deleted")
	return nil
}

// ValidateAdminCredentials runs the admin probe with an explicit pair or,
// when none is given, with the tenant's stored pair. A probe failure is a
// result, not an error.
func (s *DirectoryService) ValidateAdminCredentials(ctx context.Context, req tenancy.ValidateCredentialsRequest) (*tenancy.ValidateCredentialsResponse, error) {
	t, err := s.store.Tenants().FindByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	creds := erp.Credentials{Username: req.ERPAdminUsername, Secret: req.ERPAdminSecret}
	if creds.IsEmpty() {
		if creds, err = s.creds.ForAdmin(t); err != nil {
			return nil, err
		}
	}

	if err := s.gateway.ValidateAdmin(ctx, t.Connection(), creds); err != nil {
		if !erp.IsCredentialFailure(err) {
			return nil, err
		}
		var e *errx.Error
		errx.As(err, &e)
		return &tenancy.ValidateCredentialsResponse{Valid: false, Code: e.Code, Message: e.Message}, nil
	}
	return &tenancy.ValidateCredentialsResponse{Valid: true, Message: "Credentials are valid"}, nil
}

// setAdminCredentials validates and seals an admin pair onto t. Two empty
// values clear the pair; one empty value is rejected.
func (s *DirectoryService) setAdminCredentials(ctx context.Context, t *tenancy.Tenant, username, secret string) error {
	creds := erp.Credentials{Username: strings.TrimSpace(username), Secret: secret}
	if creds.Username == "" && creds.Secret == "" {
		t.ERPAdminUsername, t.ERPAdminSecret = "", ""
		return nil
	}
	if creds.IsEmpty() {
		return tenancy.ErrInvalidTenant().
			WithDetail("field", "erp_admin_username,erp_admin_password_or_token").
			WithDetail("reason", "both admin username and secret are required")
	}

	if err := s.gateway.ValidateAdmin(ctx, t.Connection(), creds); err != nil {
		return err
	}

	encUser, encSecret, err := s.creds.Seal(creds)
	if err != nil {
		return err
	}
	t.ERPAdminUsername, t.ERPAdminSecret = encUser, encSecret
	return nil
}

func (s *DirectoryService) toDTO(ctx context.Context, t *tenancy.Tenant) (*tenancy.TenantDTO, error) {
	domains, err := s.store.Domains().FindByTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = d.Domain
	}
	return &tenancy.TenantDTO{Tenant: *t, HasAdminCredentials: t.HasAdminCredentials(), Domains: names}, nil
}

// ============================================================================
// Domains
// ============================================================================

// AddDomain maps a domain to an existing tenant. The same domain may already
// belong to other tenants; the same (tenant, domain) pair may not.
func (s *DirectoryService) AddDomain(ctx context.Context, req tenancy.AddDomainRequest) (*tenancy.TenantDomain, error) {
	domain, err := tenancy.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Tenants().FindByID(ctx, req.TenantID); err != nil {
		return nil, err
	}

	d := &tenancy.TenantDomain{TenantID: req.TenantID, Domain: domain}
	if err := s.store.Domains().Create(ctx, d); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{"tenant_id": req.TenantID.String(), "domain": domain}).Info("Domain mapped")
	return d, nil
}

// RemoveDomain deletes a single mapping.
func (s *DirectoryService) RemoveDomain(ctx context.Context, id kernel.DomainID) error {
	return s.store.Domains().Delete(ctx, id)
}

// ResolveDomains returns every mapping for a domain, compared case-insensitively.
func (s *DirectoryService) ResolveDomains(ctx context.Context, domain string) ([]*tenancy.TenantDomain, error) {
	d, err := tenancy.NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	return s.store.Domains().FindByDomain(ctx, d)
}

// ActiveTenantsFor returns the active tenants a domain maps to, possibly none.
func (s *DirectoryService) ActiveTenantsFor(ctx context.Context, domain string) ([]*tenancy.Tenant, error) {
	d, err := tenancy.NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	return s.store.Tenants().FindActiveByDomain(ctx, d)
}

// DomainsOf lists the domains of one tenant.
func (s *DirectoryService) DomainsOf(ctx context.Context, tenantID kernel.TenantID) ([]*tenancy.TenantDomain, error) {
	return s.store.Domains().FindByTenant(ctx, tenantID)
}

func normalizeDomains(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		d, err := tenancy.NormalizeDomain(r)
		if err != nil {
			return nil, errx.Wrap(err, "invalid domain "+r, errx.TypeValidation)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// ============================================================================
// Users and associations
// ============================================================================

// FindUser looks a user up by email.
func (s *DirectoryService) FindUser(ctx context.Context, email string) (*tenancy.User, error) {
	normalized, err := tenancy.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.store.Users().FindByEmail(ctx, normalized)
}

// GetUser looks a user up by id.
func (s *DirectoryService) GetUser(ctx context.Context, id kernel.UserID) (*tenancy.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

// Memberships lists a user's associations without their credentials.
func (s *DirectoryService) Memberships(ctx context.Context, userID kernel.UserID) ([]tenancy.MembershipDTO, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return Memberships(ctx, s.store, userID)
}

// Memberships joins a user's associations with their tenants.
func Memberships(ctx context.Context, repos tenancy.Repositories, userID kernel.UserID) ([]tenancy.MembershipDTO, error) {
	links, err := repos.UserTenants().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]kernel.TenantID, len(links))
	for i, l := range links {
		ids[i] = l.TenantID
	}
	tenants, err := repos.Tenants().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[kernel.TenantID]*tenancy.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	out := make([]tenancy.MembershipDTO, 0, len(links))
	for _, l := range links {
		t, ok := byID[l.TenantID]
		if !ok {
			continue
		}
		out = append(out, tenancy.MembershipDTO{
			TenantID:       t.ID,
			TenantName:     t.Name,
			TenantActive:   t.IsActive,
			IsActive:       l.IsActive,
			HasCredentials: l.HasStoredCredentials(),
			UpdatedAt:      l.UpdatedAt,
		})
	}
	return out, nil
}

// SetMembershipActive toggles one association without touching its credentials.
func (s *DirectoryService) SetMembershipActive(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, active bool) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		ut, err := repos.UserTenants().Find(ctx, userID, tenantID)
		if err != nil {
			return err
		}
		ut.IsActive = active
		if err := repos.UserTenants().Update(ctx, ut); err != nil {
			return err
		}
		logx.WithFields(logx.Fields{
			"user_id":   userID.String(),
			"tenant_id": tenantID.String(),
			"is_active": active,
		}).Info("Association status changed")
		return nil
	})
}

// RemoveMembership deletes one association and the credentials it holds.
func (s *DirectoryService) RemoveMembership(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) error {
	return s.store.UserTenants().Delete(ctx, userID, tenantID)
}

// UpdateUser applies the non-nil fields of req to a global user.
func (s *DirectoryService) UpdateUser(ctx context.Context, id kernel.UserID, req tenancy.UpdateUserRequest) (*tenancy.User, error) {
	u, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Role != nil && strings.TrimSpace(*req.Role) != "" {
		u.Role = strings.TrimSpace(*req.Role)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes a user after its associations, in one transaction.
func (s *DirectoryService) DeleteUser(ctx context.Context, id kernel.UserID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		if err := repos.UserTenants().DeleteByUser(ctx, id); err != nil {
			return err
		}
		return repos.Users().Delete(ctx, id)
	})
}
