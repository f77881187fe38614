package tenancysrv

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// Outcome is the tri-state result of resolving an email.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeNotFound  Outcome = "not_found"
)

// Resolution is what an email resolves to. Tenant is set only when Outcome
// is OutcomeResolved; Candidates holds every active tenant found.
type Resolution struct {
	Email      string
	Domain     string
	Outcome    Outcome
	Tenant     *tenancy.Tenant
	Candidates []*tenancy.Tenant
}

// Find returns the candidate with the given id.
func (r *Resolution) Find(id kernel.TenantID) (*tenancy.Tenant, bool) {
	for _, t := range r.Candidates {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Summaries returns the (id, name) pairs of the candidates.
func (r *Resolution) Summaries() []tenancy.TenantSummary {
	out := make([]tenancy.TenantSummary, len(r.Candidates))
	for i, t := range r.Candidates {
		out[i] = t.Summary()
	}
	return out
}

// Choose picks the tenant a registration should use. Without a selection an
// ambiguous resolution fails TENANT_SELECTION_REQUIRED; a selection must be
// one of the candidates.
func (r *Resolution) Choose(selected *kernel.TenantID) (*tenancy.Tenant, error) {
	switch r.Outcome {
	case OutcomeNotFound:
		return nil, tenancy.ErrTenantNotFound().WithDetail("domain", r.Domain)
	case OutcomeResolved:
		if selected != nil && *selected != r.Tenant.ID {
			return nil, tenancy.ErrInvalidTenantSelection().WithDetail("tenant_id", selected.String())
		}
		return r.Tenant, nil
	}

	if selected == nil {
		return nil, tenancy.ErrTenantSelectionRequired().WithDetail("tenants", r.Summaries())
	}
	t, ok := r.Find(*selected)
	if !ok {
		return nil, tenancy.ErrInvalidTenantSelection().WithDetail("tenant_id", selected.String())
	}
	return t, nil
}

// Resolver maps an email to its candidate tenants through the domain table.
type Resolver struct {
	tenants tenancy.TenantRepository
}

func NewResolver(tenants tenancy.TenantRepository) *Resolver {
	return &Resolver{tenants: tenants}
}

// Resolve fails INVALID_EMAIL for a malformed address. A domain with no
// active tenant is OutcomeNotFound, not an error.
func (r *Resolver) Resolve(ctx context.Context, email string) (*Resolution, error) {
	normalized, err := tenancy.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	domain, err := tenancy.DomainFromEmail(normalized)
	if err != nil {
		return nil, err
	}

	tenants, err := r.tenants.FindActiveByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Email: normalized, Domain: domain, Candidates: tenants}
	switch len(tenants) {
	case 0:
		res.Outcome = OutcomeNotFound
	case 1:
		res.Outcome = OutcomeResolved
		res.Tenant = tenants[0]
	default:
		res.Outcome = OutcomeAmbiguous
	}
	return res, nil
}
