package tenancyapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyapi"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminERP struct{}

func (adminERP) Validate(context.Context, erp.Connection, erp.Credentials) error {
	return erp.ErrCredentialAuthFailed()
}

func (adminERP) ValidateAdmin(_ context.Context, _ erp.Connection, creds erp.Credentials) error {
	if creds.Username == "admin" && creds.Secret == "root" {
		return nil
	}
	return erp.ErrCredentialAuthFailed()
}

type adminAPI struct {
	app   *fiber.App
	token string
}

func newAdminAPI(t *testing.T) *adminAPI {
	t.Helper()
	v, err := vault.New("admin-api-key")
	require.NoError(t, err)

	store := tenancyinfra.NewMemoryStore()
	dir := tenancysrv.NewDirectoryService(store, tenancysrv.NewCredentialResolver(v), adminERP{})
	tokens := auth.NewJWTService(auth.JWTOptions{UserSecret: "u", AdminSecret: "a"})

	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberErrorHandler(false)})
	tenancyapi.NewDirectoryHandlers(dir).RegisterRoutes(app.Group("/api/v1"), auth.NewGate(tokens, store, nil))

	issued, err := tokens.IssueAdminToken("root")
	require.NoError(t, err)
	return &adminAPI{app: app, token: issued.Token}
}

func (a *adminAPI) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestAdminRoutes_RequireAdminToken(t *testing.T) {
	a := newAdminAPI(t)
	a.token = ""

	status, body := a.do(t, http.MethodGet, "/api/v1/admin/tenants", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestAdminRoutes_RejectUserToken(t *testing.T) {
	a := newAdminAPI(t)
	tokens := auth.NewJWTService(auth.JWTOptions{UserSecret: "u", AdminSecret: "a"})
	issued, err := tokens.IssueUserToken(1, 1, "ana@acme.com")
	require.NoError(t, err)
	a.token = issued.Token

	status, body := a.do(t, http.MethodGet, "/api/v1/admin/tenants", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", body["code"])
}

func TestAdminRoutes_TenantLifecycle(t *testing.T) {
	a := newAdminAPI(t)

	status, body := a.do(t, http.MethodPost, "/api/v1/admin/tenants", map[string]interface{}{
		"name":                        "Acme",
		"erp_base_url":                "https://erp.acme.com",
		"erp_company":                 "acme",
		"erp_admin_username":          "admin",
		"erp_admin_password_or_token": "root",
		"domains":                     []string{"acme.com"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["has_admin_credentials"])
	assert.NotContains(t, body, "erp_admin_password_or_token")
	id := int64(body["id"].(float64))

	status, body = a.do(t, http.MethodGet, "/api/v1/admin/tenants?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = a.do(t, http.MethodPost, "/api/v1/admin/domains", map[string]interface{}{"tenant_id": id, "domain": "ACME.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/v1/admin/validate-credentials", map[string]interface{}{"tenant_id": id})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, _ = a.do(t, http.MethodDelete, "/api/v1/admin/tenants/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = a.do(t, http.MethodGet, "/api/v1/admin/tenants/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "TENANT_NOT_FOUND", body["code"])
}

func TestAdminRoutes_RejectedAdminPair(t *testing.T) {
	a := newAdminAPI(t)

	status, body := a.do(t, http.MethodPost, "/api/v1/admin/tenants", map[string]interface{}{
		"name":                        "Acme",
		"erp_base_url":                "https://erp.acme.com",
		"erp_company":                 "acme",
		"erp_admin_username":          "admin",
		"erp_admin_password_or_token": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "CREDENTIAL_AUTH_FAILED", body["code"])
}

func TestAdminRoutes_BadIDs(t *testing.T) {
	a := newAdminAPI(t)

	status, body := a.do(t, http.MethodGet, "/api/v1/admin/tenants/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	status, body = a.do(t, http.MethodGet, "/api/v1/admin/domains", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}
