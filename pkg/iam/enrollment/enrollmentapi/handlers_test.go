package enrollmentapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment/enrollmentapi"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment/enrollmentsrv"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticERP accepts a single username/secret pair on every tenant.
type staticERP struct{ user, secret string }

func (g staticERP) Validate(_ context.Context, _ erp.Connection, creds erp.Credentials) error {
	if creds.Username != g.user || creds.Secret != g.secret {
		return erp.ErrCredentialAuthFailed()
	}
	return nil
}

func (g staticERP) ValidateAdmin(ctx context.Context, conn erp.Connection, creds erp.Credentials) error {
	return g.Validate(ctx, conn, creds)
}

type apiFixture struct {
	app   *fiber.App
	store *tenancyinfra.MemoryStore
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	v, err := vault.New("api-test-key")
	require.NoError(t, err)

	store := tenancyinfra.NewMemoryStore()
	tokens := auth.NewJWTService(auth.JWTOptions{UserSecret: "u", AdminSecret: "a", UserTTL: time.Hour})
	audit := authinfra.NewLogxAuditService()
	svc := enrollmentsrv.NewService(
		store,
		tenancysrv.NewResolver(store.Tenants()),
		tenancysrv.NewCredentialResolver(v),
		staticERP{user: "erp-user", secret: "erp-pass"},
		tokens,
		auth.NewAttemptGuard(nil),
		audit,
	)
	h := enrollmentapi.NewEnrollmentHandlers(svc, auth.NewGate(tokens, store, audit))

	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberErrorHandler(false)})
	h.RegisterRoutes(app.Group("/api/v1/auth"))
	return &apiFixture{app: app, store: store}
}

func (f *apiFixture) tenant(t *testing.T, name, domain string) *tenancy.Tenant {
	t.Helper()
	ctx := context.Background()
	tn := &tenancy.Tenant{Name: name, ERPBaseURL: "https://erp", ERPCompany: name, IsActive: true}
	require.NoError(t, f.store.Tenants().Create(ctx, tn))
	require.NoError(t, f.store.Domains().Create(ctx, &tenancy.TenantDomain{TenantID: tn.ID, Domain: domain}))
	return tn
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestResolveEndpoint(t *testing.T) {
	f := newAPI(t)
	f.tenant(t, "t1", "acme.com")
	f.tenant(t, "t2", "acme.com")
	solo := f.tenant(t, "t3", "solo.com")

	status, body := f.do(t, http.MethodPost, "/api/v1/auth/tenant/resolve", "", map[string]string{"email": "x@acme.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["requires_selection"])
	assert.Len(t, body["tenants"], 2)

	status, body = f.do(t, http.MethodPost, "/api/v1/auth/tenant/resolve", "", map[string]string{"email": "x@solo.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(solo.ID), body["tenant_id"])
	assert.Equal(t, "t3", body["tenant_name"])

	status, body = f.do(t, http.MethodPost, "/api/v1/auth/tenant/resolve", "", map[string]string{"email": "x@nowhere.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "TENANT_NOT_FOUND", body["code"])
}

func TestRegisterThenMe(t *testing.T) {
	f := newAPI(t)
	t1 := f.tenant(t, "t1", "acme.com")
	f.tenant(t, "t2", "acme.com")

	status, body := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "alice@acme.com", "erp_username": "erp-user", "erp_secret": "erp-pass",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "TENANT_SELECTION_REQUIRED", body["code"])
	details, _ := body["details"].(map[string]interface{})
	assert.Len(t, details["tenants"], 2)

	status, body = f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "alice@acme.com", "erp_username": "erp-user", "erp_secret": "wrong", "tenant_id": t1.ID,
	})
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "CREDENTIAL_AUTH_FAILED", body["code"])

	status, body = f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "alice@acme.com", "erp_username": "erp-user", "erp_secret": "erp-pass", "tenant_id": t1.ID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, float64(t1.ID), body["tenant_id"])
	token := body["access_token"].(string)

	status, body = f.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@acme.com", user["email"])
	assert.NotContains(t, body, "erp_secret")
	membership := body["membership"].(map[string]interface{})
	assert.Equal(t, true, membership["has_credentials"])

	status, body = f.do(t, http.MethodGet, "/api/v1/auth/tenants", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tenants"], 1)

	status, body = f.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestSwitchTenantEndpoint(t *testing.T) {
	f := newAPI(t)
	t1 := f.tenant(t, "t1", "acme.com")
	t2 := f.tenant(t, "t2", "acme.com")

	status, _ := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "bob@acme.com", "erp_username": "erp-user", "erp_password_or_token": "erp-pass", "tenant_id": t1.ID,
	})
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodPost, "/api/v1/auth/switch-tenant", "", map[string]interface{}{
		"email": "bob@acme.com", "tenant_id": t2.ID,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NO_STORED_CREDENTIALS", body["code"])

	status, body = f.do(t, http.MethodPost, "/api/v1/auth/switch-tenant", "", map[string]interface{}{
		"email": "bob@acme.com", "tenant_id": t1.ID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(t1.ID), body["tenant_id"])
}
