package errx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegistry = errx.NewRegistry("")
	codeMissing  = testRegistry.Register("THING_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Thing not found")
	codeDenied   = testRegistry.Register("THING_DENIED", errx.TypeForbidden, http.StatusForbidden, "Thing denied")
)

func TestRegistry_EmptyPrefixKeepsCode(t *testing.T) {
	e := testRegistry.New(codeMissing)
	assert.Equal(t, "THING_NOT_FOUND", e.Code)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)

	prefixed := errx.NewRegistry("AUTH")
	c := prefixed.Register("X", errx.TypeInternal, 500, "x")
	assert.Equal(t, "AUTH_X", c.Code)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := errx.NewRegistry("")
	r.Register("DUP", errx.TypeInternal, 500, "dup")
	assert.Panics(t, func() { r.Register("DUP", errx.TypeInternal, 500, "dup") })
}

func TestHasCode_WalksChain(t *testing.T) {
	base := testRegistry.New(codeDenied).WithDetail("tenant_id", 3)
	wrapped := fmt.Errorf("loading: %w", base)

	assert.True(t, errx.HasCode(wrapped, codeDenied))
	assert.False(t, errx.HasCode(wrapped, codeMissing))
	assert.False(t, errx.HasCode(nil, codeDenied))
	assert.Equal(t, "THING_DENIED", errx.CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, testRegistry.New(codeDenied)))
}

func TestWrap_PreservesRegisteredCode(t *testing.T) {
	base := testRegistry.New(codeMissing).WithDetail("id", 9)
	w := errx.Wrap(base, "while loading", errx.TypeInternal)

	assert.Equal(t, "THING_NOT_FOUND", w.Code)
	assert.Equal(t, http.StatusNotFound, w.HTTPStatus)
	assert.Equal(t, 9, w.Details["id"])
	assert.Nil(t, errx.Wrap(nil, "x", errx.TypeInternal))
}

func runHandler(t *testing.T, debug bool, handlerErr error) (*http.Response, errx.HTTPErrorResponse) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberErrorHandler(debug)})
	app.Get("/", func(c *fiber.Ctx) error { return handlerErr })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body errx.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp, body
}

func TestFiberErrorHandler_RegisteredError(t *testing.T) {
	resp, body := runHandler(t, false, testRegistry.New(codeDenied).WithDetail("tenant_id", "4"))

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "THING_DENIED", body.Code)
	assert.Equal(t, "4", body.Details["tenant_id"])
}

func TestFiberErrorHandler_UnclassifiedHidesCause(t *testing.T) {
	resp, body := runHandler(t, false, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Empty(t, body.Cause)

	_, debugBody := runHandler(t, true, errors.New("pq: connection refused"))
	assert.Equal(t, "pq: connection refused", debugBody.Cause)
}

func TestFiberErrorHandler_UnauthorizedSetsChallenge(t *testing.T) {
	r := errx.NewRegistry("")
	c := r.Register("NOPE", errx.TypeAuthorization, http.StatusUnauthorized, "nope")

	resp, body := runHandler(t, false, r.New(c))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	assert.Equal(t, "NOPE", body.Code)
}

func TestFiberErrorHandler_FiberError(t *testing.T) {
	resp, body := runHandler(t, false, fiber.ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "HTTP_ERROR", body.Code)
}
