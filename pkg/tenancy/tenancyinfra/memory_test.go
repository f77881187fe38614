package tenancyinfra_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTenant(t *testing.T, store tenancy.Store, name string, active bool, domains ...string) *tenancy.Tenant {
	t.Helper()
	ctx := context.Background()
	tn := &tenancy.Tenant{Name: name, ERPBaseURL: "https://" + name, ERPCompany: name, IsActive: active}
	require.NoError(t, store.Tenants().Create(ctx, tn))
	for _, d := range domains {
		require.NoError(t, store.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: tn.ID, Domain: d}))
	}
	return tn
}

func TestMemoryStore_DomainUniquenessPerTenant(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	t1 := seedTenant(t, store, "t1", true, "acme.com")
	t2 := seedTenant(t, store, "t2", true)

	err := store.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: t1.ID, Domain: "acme.com"})
	assert.True(t, errx.HasCode(err, tenancy.CodeConflict))

	require.NoError(t, store.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: t2.ID, Domain: "acme.com"}))

	got, err := store.Domains().FindByDomain(ctx, "acme.com")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	err = store.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: 999, Domain: "acme.com"})
	assert.True(t, errx.HasCode(err, tenancy.CodeTenantNotFound))
}

func TestMemoryStore_FindActiveByDomainFiltersInactive(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	t1 := seedTenant(t, store, "t1", true, "acme.com")
	seedTenant(t, store, "t2", false, "acme.com")

	got, err := store.Tenants().FindActiveByDomain(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, t1.ID, got[0].ID)
}

func TestMemoryStore_TenantDeleteCascades(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	tn := seedTenant(t, store, "t1", true, "acme.com")

	u := &tenancy.User{Email: "a@acme.com", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, u))
	require.NoError(t, store.UserTenants().Create(ctx, &tenancy.UserTenant{UserID: u.ID, TenantID: tn.ID, IsActive: true}))

	require.NoError(t, store.Tenants().Delete(ctx, tn.ID))

	domains, _ := store.Domains().FindByTenant(ctx, tn.ID)
	assert.Empty(t, domains)
	_, err := store.UserTenants().Find(ctx, u.ID, tn.ID)
	assert.True(t, errx.HasCode(err, tenancy.CodeAssociationNotFound))
}

func TestMemoryStore_WithinTxRollsBackEverything(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	tn := seedTenant(t, store, "t1", true)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		u := &tenancy.User{Email: "a@acme.com", IsActive: true}
		if err := repos.Users().Create(ctx, u); err != nil {
			return err
		}
		if err := repos.UserTenants().Create(ctx, &tenancy.UserTenant{UserID: u.ID, TenantID: tn.ID, IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Users().FindByEmail(ctx, "a@acme.com")
	assert.True(t, errx.HasCode(err, tenancy.CodeUserNotFound))
}

func TestMemoryStore_WithinTxCommits(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	tn := seedTenant(t, store, "t1", true)

	err := store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
		u := &tenancy.User{Email: "a@acme.com", IsActive: true}
		if err := repos.Users().Create(ctx, u); err != nil {
			return err
		}
		return repos.UserTenants().Create(ctx, &tenancy.UserTenant{UserID: u.ID, TenantID: tn.ID, ERPUsername: "x", ERPSecret: "y", IsActive: true})
	})
	require.NoError(t, err)

	u, err := store.Users().FindByEmail(ctx, "a@acme.com")
	require.NoError(t, err)
	ut, err := store.UserTenants().Find(ctx, u.ID, tn.ID)
	require.NoError(t, err)
	assert.True(t, ut.HasStoredCredentials())
}

func TestMemoryStore_ConcurrentCreatesKeepOneAssociation(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	tn := seedTenant(t, store, "t1", true)
	u := &tenancy.User{Email: "a@acme.com", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, u))

	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, repos tenancy.Repositories) error {
				return repos.UserTenants().Create(ctx, &tenancy.UserTenant{UserID: u.ID, TenantID: tn.ID, IsActive: true})
			})
			if errx.HasCode(err, tenancy.CodeConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	all, err := store.UserTenants().FindByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 7, conflicts)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := tenancyinfra.NewMemoryStore()
	ctx := context.Background()
	tn := seedTenant(t, store, "t1", true)

	got, err := store.Tenants().FindByID(ctx, tn.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.Tenants().FindByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", again.Name)
}
