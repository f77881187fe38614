package tenancysrv_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/stretchr/testify/require"
)

// fakeGateway accepts only the pairs it was told about.
type fakeGateway struct {
	mu      sync.Mutex
	users   map[string]string
	admins  map[string]string
	failure error
	calls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{users: map[string]string{}, admins: map[string]string{}}
}

func (g *fakeGateway) Validate(ctx context.Context, conn erp.Connection, creds erp.Credentials) error {
	return g.check(g.users, creds)
}

func (g *fakeGateway) ValidateAdmin(ctx context.Context, conn erp.Connection, creds erp.Credentials) error {
	return g.check(g.admins, creds)
}

func (g *fakeGateway) check(known map[string]string, creds erp.Credentials) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failure != nil {
		return g.failure
	}
	if secret, ok := known[creds.Username]; !ok || secret != creds.Secret {
		return erp.ErrCredentialAuthFailed()
	}
	return nil
}

type fixture struct {
	store    *tenancyinfra.MemoryStore
	vault    *vault.Vault
	gateway  *fakeGateway
	creds    *tenancysrv.CredentialResolver
	dir      *tenancysrv.DirectoryService
	resolver *tenancysrv.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vault.New("test-master-key")
	require.NoError(t, err)

	f := &fixture{
		store:   tenancyinfra.NewMemoryStore(),
		vault:   v,
		gateway: newFakeGateway(),
	}
	f.creds = tenancysrv.NewCredentialResolver(v)
	f.dir = tenancysrv.NewDirectoryService(f.store, f.creds, f.gateway)
	f.resolver = tenancysrv.NewResolver(f.store.Tenants())
	return f
}

func (f *fixture) tenant(t *testing.T, name string, active bool, domains ...string) *tenancy.TenantDTO {
	t.Helper()
	dto, err := f.dir.CreateTenant(context.Background(), tenancy.CreateTenantRequest{
		Name:       name,
		ERPBaseURL: "https://erp.example.com/odata/Priority",
		ERPCompany: name,
		IsActive:   &active,
		Domains:    domains,
	})
	require.NoError(t, err)
	return dto
}
