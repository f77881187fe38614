package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAudit struct {
	rejections []string
	logins     []bool
}

func (a *recordingAudit) LogRegistration(context.Context, string, kernel.TenantID, kernel.UserID, bool, string, string) {
}

func (a *recordingAudit) LogTenantSwitch(context.Context, string, kernel.TenantID, kernel.UserID, bool, string, string) {
}

func (a *recordingAudit) LogGateRejection(_ context.Context, code string, _ string, _ string) {
	a.rejections = append(a.rejections, code)
}

func (a *recordingAudit) LogAdminLogin(_ context.Context, _ string, success bool, _ string) {
	a.logins = append(a.logins, success)
}

type gateFixture struct {
	app    *fiber.App
	store  *tenancyinfra.MemoryStore
	tokens *auth.JWTService
	audit  *recordingAudit
	user   *tenancy.User
	tenant *tenancy.Tenant
	link   *tenancy.UserTenant
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	ctx := context.Background()
	f := &gateFixture{
		store: tenancyinfra.NewMemoryStore(),
		tokens: auth.NewJWTService(auth.JWTOptions{
			UserSecret: "user-secret", AdminSecret: "admin-secret", UserTTL: time.Hour,
		}),
		audit: &recordingAudit{},
	}

	f.tenant = &tenancy.Tenant{Name: "acme", ERPBaseURL: "https://erp", ERPCompany: "acme", IsActive: true}
	require.NoError(t, f.store.Tenants().Create(ctx, f.tenant))
	f.user = &tenancy.User{Email: "alice@acme.com", Role: tenancy.DefaultRole, IsActive: true}
	require.NoError(t, f.store.Users().Create(ctx, f.user))
	f.link = &tenancy.UserTenant{UserID: f.user.ID, TenantID: f.tenant.ID, ERPUsername: "enc", ERPSecret: "enc", IsActive: true}
	require.NoError(t, f.store.UserTenants().Create(ctx, f.link))

	gate := auth.NewGate(f.tokens, f.store, f.audit)
	f.app = fiber.New(fiber.Config{ErrorHandler: errx.FiberErrorHandler(false)})
	f.app.Get("/me", gate.Authenticate(), func(c *fiber.Ctx) error {
		p, ok := auth.GetPrincipal(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		ac, _ := c.UserContext().Value(kernel.AuthContextKey).(*kernel.AuthContext)
		return c.JSON(fiber.Map{"email": p.User.Email, "tenant": p.Tenant.Name, "ctx_user": ac.UserID.String()})
	})
	f.app.Get("/admin", gate.RequireAdmin(), func(c *fiber.Ctx) error {
		ac, _ := auth.GetAuthContext(c)
		return c.JSON(fiber.Map{"admin": ac.AdminName})
	})
	return f
}

func (f *gateFixture) userToken(t *testing.T) string {
	t.Helper()
	issued, err := f.tokens.IssueUserToken(f.user.ID, f.tenant.ID, f.user.Email)
	require.NoError(t, err)
	return issued.Token
}

func (f *gateFixture) call(t *testing.T, path, authorization string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGate_Authorized(t *testing.T) {
	f := newGateFixture(t)

	status, body := f.call(t, "/me", "Bearer "+f.userToken(t))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@acme.com", body["email"])
	assert.Equal(t, "acme", body["tenant"])
	assert.Equal(t, f.user.ID.String(), body["ctx_user"])
}

func TestGate_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(t *testing.T, f *gateFixture)
		header func(t *testing.T, f *gateFixture) string
		status int
		code   string
	}{
		{
			name:   "missing token",
			header: func(*testing.T, *gateFixture) string { return "" },
			status: http.StatusUnauthorized,
			code:   "MISSING_TOKEN",
		},
		{
			name:   "scheme without token",
			header: func(*testing.T, *gateFixture) string { return "Bearer" },
			status: http.StatusUnauthorized,
			code:   "MISSING_TOKEN",
		},
		{
			name:   "lowercase scheme without token",
			header: func(*testing.T, *gateFixture) string { return "bearer   " },
			status: http.StatusUnauthorized,
			code:   "MISSING_TOKEN",
		},
		{
			name:   "malformed header",
			header: func(*testing.T, *gateFixture) string { return "Token abc" },
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
		{
			name: "admin token on user path",
			header: func(t *testing.T, f *gateFixture) string {
				issued, err := f.tokens.IssueAdminToken("root")
				require.NoError(t, err)
				return "Bearer " + issued.Token
			},
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
		{
			name: "user deleted",
			mutate: func(t *testing.T, f *gateFixture) {
				require.NoError(t, f.store.Users().Delete(ctx, f.user.ID))
			},
			status: http.StatusUnauthorized,
			code:   "USER_INACTIVE",
		},
		{
			name: "user inactive",
			mutate: func(t *testing.T, f *gateFixture) {
				f.user.IsActive = false
				require.NoError(t, f.store.Users().Update(ctx, f.user))
			},
			status: http.StatusUnauthorized,
			code:   "USER_INACTIVE",
		},
		{
			name: "tenant inactive",
			mutate: func(t *testing.T, f *gateFixture) {
				f.tenant.IsActive = false
				require.NoError(t, f.store.Tenants().Update(ctx, f.tenant))
			},
			status: http.StatusUnauthorized,
			code:   "TENANT_INACTIVE",
		},
		{
			name: "association inactive",
			mutate: func(t *testing.T, f *gateFixture) {
				f.link.IsActive = false
				require.NoError(t, f.store.UserTenants().Update(ctx, f.link))
			},
			status: http.StatusForbidden,
			code:   "ASSOCIATION_INACTIVE",
		},
		{
			name: "association removed",
			mutate: func(t *testing.T, f *gateFixture) {
				require.NoError(t, f.store.UserTenants().Delete(ctx, f.user.ID, f.tenant.ID))
			},
			status: http.StatusForbidden,
			code:   "ASSOCIATION_INACTIVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t)
			header := "Bearer " + f.userToken(t)
			if tt.header != nil {
				header = tt.header(t, f)
			}
			if tt.mutate != nil {
				tt.mutate(t, f)
			}

			status, body := f.call(t, "/me", header)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, []string{tt.code}, f.audit.rejections)
		})
	}
}

func TestGate_RequireAdmin(t *testing.T) {
	f := newGateFixture(t)

	status, body := f.call(t, "/admin", "Bearer "+f.userToken(t))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", body["code"])

	issued, err := f.tokens.IssueAdminToken("root")
	require.NoError(t, err)
	status, body = f.call(t, "/admin", "Bearer "+issued.Token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "root", body["admin"])
}
