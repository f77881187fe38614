package enrollmentsrv

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
)

// maxUpsertAttempts bounds the retry after a concurrent registration of the
// same (email, tenant) pair wins the unique constraint.
const maxUpsertAttempts = 2

// Service runs registration and tenant switching. ERP calls always happen
// before the directory transaction is opened.
type Service struct {
	store    tenancy.Store
	resolver *tenancysrv.Resolver
	creds    *tenancysrv.CredentialResolver
	gateway  erp.Gateway
	tokens   auth.TokenService
	guard    *auth.AttemptGuard
	audit    auth.AuditService
}

func NewService(
	store tenancy.Store,
	resolver *tenancysrv.Resolver,
	creds *tenancysrv.CredentialResolver,
	gateway erp.Gateway,
	tokens auth.TokenService,
	guard *auth.AttemptGuard,
	audit auth.AuditService,
) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		creds:    creds,
		gateway:  gateway,
		tokens:   tokens,
		guard:    guard,
		audit:    audit,
	}
}

// ============================================================================
// Resolve
// ============================================================================

// Resolve reports the tenant an email belongs to, or the candidates to
// choose from. A domain with no active tenant fails TENANT_NOT_FOUND.
func (s *Service) Resolve(ctx context.Context, email string) (*enrollment.ResolveResponse, error) {
	res, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case tenancysrv.OutcomeResolved:
		id := res.Tenant.ID
		return &enrollment.ResolveResponse{TenantID: &id, TenantName: res.Tenant.Name}, nil
	case tenancysrv.OutcomeAmbiguous:
		return &enrollment.ResolveResponse{Tenants: res.Summaries(), RequiresSelection: true}, nil
	default:
		return nil, tenancy.ErrTenantNotFound().WithDetail("domain", res.Domain)
	}
}

// ============================================================================
// Register
// ============================================================================

// Register validates the ERP credentials against the chosen tenant and only
// then records the user and association. Nothing is written on failure.
func (s *Service) Register(ctx context.Context, req enrollment.RegisterRequest, ip string) (*enrollment.TokenResponse, error) {
	ctx = context.WithoutCancel(ctx)

	creds := erp.Credentials{Username: req.Username(), Secret: req.Secret()}
	if creds.IsEmpty() {
		return nil, iam.ErrInvalidRequest().WithDetail("field", "erp_username,erp_secret")
	}

	res, err := s.resolver.Resolve(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	tenant, err := res.Choose(req.TenantID)
	if err != nil {
		return nil, err
	}
	email := res.Email

	if err := s.guard.Check(ctx, auth.ScopeRegister, email); err != nil {
		return nil, err
	}

	existing, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil && !existing.IsActive:
		s.audit.LogRegistration(ctx, email, tenant.ID, existing.ID, false, tenancy.CodeUserInactive.Code, ip)
		return nil, tenancy.ErrUserInactive()
	case err != nil && !errx.HasCode(err, tenancy.CodeUserNotFound):
		return nil, err
	}

	if err := s.gateway.Validate(ctx, tenant.Connection(), creds); err != nil {
		if errx.HasCode(err, erp.CodeCredentialAuthFailed) {
			s.guard.Fail(ctx, auth.ScopeRegister, email)
		}
		if erp.IsCredentialFailure(err) {
			s.audit.LogRegistration(ctx, email, tenant.ID, 0, false, errx.CodeOf(err), ip)
		}
		return nil, err
	}

	encUser, encSecret, err := s.creds.Seal(creds)
	if err != nil {
		return nil, errx.Wrap(err, "failed to encrypt credentials", errx.TypeInternal).
			WithDetail("operation", "register").
			WithDetail("tenant_id", tenant.ID.String())
	}

	var user *tenancy.User
	for attempt := 1; ; attempt++ {
		user, err = s.upsert(ctx, email, tenant.ID, encUser, encSecret)
		if err == nil || !errx.HasCode(err, tenancy.CodeConflict) || attempt == maxUpsertAttempts {
			break
		}
		logx.WithFields(logx.Fields{
			"tenant_id": tenant.ID.String(),
			"attempt":   attempt,
		}).Debug("Concurrent registration detected, retrying as update")
	}
	if err != nil {
		return nil, withContext(err, "register", tenant.ID)
	}

	s.guard.Succeed(ctx, auth.ScopeRegister, email)
	resp, err := s.issue(user, tenant.ID)
	if err != nil {
		return nil, err
	}
	s.audit.LogRegistration(ctx, email, tenant.ID, user.ID, true, "", ip)
	return resp, nil
}

// upsert finds or creates the user and writes the association with fresh
// ciphertext and is_active forced on, all in one transaction.
func (s *Service) upsert(ctx context.Context, email string, tenantID kernel.TenantID, encUser, encSecret string) (*tenancy.User, error) {
	var user *tenancy.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		tenant, err := repos.Tenants().FindByID(ctx, tenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive {
			return tenancy.ErrTenantInactive()
		}

		user, err = repos.Users().FindByEmail(ctx, email)
		switch {
		case errx.HasCode(err, tenancy.CodeUserNotFound):
			user = &tenancy.User{Email: email, Role: tenancy.DefaultRole, IsActive: true}
			if err := repos.Users().Create(ctx, user); err != nil {
				return err
			}
		case err != nil:
			return err
		case !user.IsActive:
			return tenancy.ErrUserInactive()
		}

		link, err := repos.UserTenants().Find(ctx, user.ID, tenantID)
		if errx.HasCode(err, tenancy.CodeAssociationNotFound) {
			return repos.UserTenants().Create(ctx, &tenancy.UserTenant{
				UserID:      user.ID,
				TenantID:    tenantID,
				ERPUsername: encUser,
				ERPSecret:   encSecret,
				IsActive:    true,
			})
		}
		if err != nil {
			return err
		}

		link.ERPUsername = encUser
		link.ERPSecret = encSecret
		link.IsActive = true
		return repos.UserTenants().Update(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ============================================================================
// Switch tenant
// ============================================================================

// SwitchTenant issues a token for another tenant using the credentials
// stored for it, after re-validating them against the ERP.
func (s *Service) SwitchTenant(ctx context.Context, req enrollment.SwitchTenantRequest, ip string) (*enrollment.TokenResponse, error) {
	ctx = context.WithoutCancel(ctx)

	email, err := tenancy.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.TenantID.IsEmpty() {
		return nil, iam.ErrInvalidRequest().WithDetail("field", "tenant_id")
	}

	if err := s.guard.Check(ctx, auth.ScopeSwitch, email); err != nil {
		return nil, err
	}

	var (
		user   *tenancy.User
		tenant *tenancy.Tenant
		link   *tenancy.UserTenant
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		var err error
		if user, err = repos.Users().FindByEmail(ctx, email); err != nil {
			return err
		}
		if !user.IsActive {
			return tenancy.ErrUserInactive()
		}

		tenant, err = repos.Tenants().FindByID(ctx, req.TenantID)
		if errx.HasCode(err, tenancy.CodeTenantNotFound) || (err == nil && !tenant.IsActive) {
			return tenancy.ErrTenantInactive().WithDetail("tenant_id", req.TenantID.String())
		}
		if err != nil {
			return err
		}

		link, err = repos.UserTenants().Find(ctx, user.ID, tenant.ID)
		if errx.HasCode(err, tenancy.CodeAssociationNotFound) || (err == nil && !link.IsActive) {
			return tenancy.ErrNoStoredCredentials()
		}
		return err
	})
	if err != nil {
		return nil, withContext(err, "switch_tenant", req.TenantID)
	}

	creds, err := s.creds.ForUser(link)
	if err != nil {
		s.audit.LogTenantSwitch(ctx, email, tenant.ID, user.ID, false, errx.CodeOf(err), ip)
		return nil, err
	}

	if err := s.gateway.Validate(ctx, tenant.Connection(), creds); err != nil {
		if !erp.IsCredentialFailure(err) {
			return nil, err
		}
		if errx.HasCode(err, erp.CodeCredentialAuthFailed) {
			s.guard.Fail(ctx, auth.ScopeSwitch, email)
			err = tenancy.ErrStoredCredentialsInvalid().WithCause(err)
		}
		s.audit.LogTenantSwitch(ctx, email, tenant.ID, user.ID, false, errx.CodeOf(err), ip)
		return nil, err
	}

	s.guard.Succeed(ctx, auth.ScopeSwitch, email)
	resp, err := s.issue(user, tenant.ID)
	if err != nil {
		return nil, err
	}
	s.audit.LogTenantSwitch(ctx, email, tenant.ID, user.ID, true, "", ip)
	return resp, nil
}

// ============================================================================
// Caller views
// ============================================================================

// Me describes the principal the gate loaded.
func (s *Service) Me(p *auth.Principal) *enrollment.MeResponse {
	return &enrollment.MeResponse{
		User:   p.User,
		Tenant: p.Tenant.Summary(),
		Membership: tenancy.MembershipDTO{
			TenantID:       p.Tenant.ID,
			TenantName:     p.Tenant.Name,
			TenantActive:   p.Tenant.IsActive,
			IsActive:       p.Membership.IsActive,
			HasCredentials: p.Membership.HasStoredCredentials(),
			UpdatedAt:      p.Membership.UpdatedAt,
		},
	}
}

// SwitchableTenants lists the caller's usable associations, the targets
// switch-tenant can succeed for.
func (s *Service) SwitchableTenants(ctx context.Context, userID kernel.UserID) ([]tenancy.MembershipDTO, error) {
	all, err := tenancysrv.Memberships(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	out := make([]tenancy.MembershipDTO, 0, len(all))
	for _, m := range all {
		if m.IsActive && m.TenantActive && m.HasCredentials {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) issue(user *tenancy.User, tenantID kernel.TenantID) (*enrollment.TokenResponse, error) {
	issued, err := s.tokens.IssueUserToken(user.ID, tenantID, user.Email)
	if err != nil {
		return nil, err
	}
	return &enrollment.TokenResponse{
		AccessToken: issued.Token,
		TokenType:   enrollment.TokenType,
		TenantID:    tenantID,
		UserID:      user.ID,
		Email:       user.Email,
		ExpiresIn:   issued.ExpiresIn(),
	}, nil
}

// withContext tags store failures that carry no catalogued code with the
// operation and tenant. Catalogued errors are returned unchanged.
func withContext(err error, operation string, tenantID kernel.TenantID) error {
	var e *errx.Error
	if errx.As(err, &e) && e.Code != string(errx.TypeInternal) {
		return err
	}
	return errx.New("directory operation failed", errx.TypeInternal).
		WithCause(err).
		WithDetail("operation", operation).
		WithDetail("tenant_id", tenantID.String())
}
