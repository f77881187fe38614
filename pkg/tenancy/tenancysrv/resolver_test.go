package tenancysrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SingleTenant(t *testing.T) {
	f := newFixture(t)
	acme := f.tenant(t, "acme", true, "acme.com")

	res, err := f.resolver.Resolve(context.Background(), "  Alice@ACME.com ")
	require.NoError(t, err)

	assert.Equal(t, tenancysrv.OutcomeResolved, res.Outcome)
	assert.Equal(t, "alice@acme.com", res.Email)
	assert.Equal(t, "acme.com", res.Domain)
	require.NotNil(t, res.Tenant)
	assert.Equal(t, acme.ID, res.Tenant.ID)
}

func TestResolve_AmbiguousListsActiveOnly(t *testing.T) {
	f := newFixture(t)
	a := f.tenant(t, "alpha", true, "shared.io")
	b := f.tenant(t, "beta", true, "shared.io")
	f.tenant(t, "gamma", false, "shared.io")

	res, err := f.resolver.Resolve(context.Background(), "bob@shared.io")
	require.NoError(t, err)

	assert.Equal(t, tenancysrv.OutcomeAmbiguous, res.Outcome)
	assert.Nil(t, res.Tenant)
	assert.Equal(t, []tenancy.TenantSummary{
		{ID: a.ID, Name: "alpha"},
		{ID: b.ID, Name: "beta"},
	}, res.Summaries())
}

func TestResolve_NotFound(t *testing.T) {
	f := newFixture(t)
	f.tenant(t, "sleepy", false, "nobody.org")

	res, err := f.resolver.Resolve(context.Background(), "x@nobody.org")
	require.NoError(t, err)
	assert.Equal(t, tenancysrv.OutcomeNotFound, res.Outcome)

	_, err = res.Choose(nil)
	assert.True(t, errx.HasCode(err, tenancy.CodeTenantNotFound))
}

func TestResolve_InvalidEmail(t *testing.T) {
	f := newFixture(t)
	for _, email := range []string{"", "no-at-sign", "a@b@c", "@acme.com", "alice@"} {
		_, err := f.resolver.Resolve(context.Background(), email)
		assert.True(t, errx.HasCode(err, tenancy.CodeInvalidEmail), email)
	}
}

func TestChoose(t *testing.T) {
	f := newFixture(t)
	a := f.tenant(t, "alpha", true, "shared.io")
	b := f.tenant(t, "beta", true, "shared.io")
	solo := f.tenant(t, "solo", true, "solo.io")
	ctx := context.Background()

	ambiguous, err := f.resolver.Resolve(ctx, "bob@shared.io")
	require.NoError(t, err)
	single, err := f.resolver.Resolve(ctx, "bob@solo.io")
	require.NoError(t, err)

	t.Run("ambiguous without selection", func(t *testing.T) {
		_, err := ambiguous.Choose(nil)
		require.True(t, errx.HasCode(err, tenancy.CodeTenantSelectionRequired))

		var e *errx.Error
		require.True(t, errx.As(err, &e))
		assert.Len(t, e.Details["tenants"], 2)
	})

	t.Run("ambiguous with candidate", func(t *testing.T) {
		got, err := ambiguous.Choose(&b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	})

	t.Run("ambiguous with stranger", func(t *testing.T) {
		_, err := ambiguous.Choose(&solo.ID)
		assert.True(t, errx.HasCode(err, tenancy.CodeInvalidTenantSelection))
	})

	t.Run("single with matching selection", func(t *testing.T) {
		got, err := single.Choose(&solo.ID)
		require.NoError(t, err)
		assert.Equal(t, solo.ID, got.ID)
	})

	t.Run("single with other selection", func(t *testing.T) {
		_, err := single.Choose(&a.ID)
		assert.True(t, errx.HasCode(err, tenancy.CodeInvalidTenantSelection))
	})

	t.Run("single without selection", func(t *testing.T) {
		got, err := single.Choose(nil)
		require.NoError(t, err)
		assert.Equal(t, solo.ID, got.ID)
	})

}
