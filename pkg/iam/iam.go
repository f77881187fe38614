package iam

import (
	"net/http"

	"github.com/Abraxas-365/filesmile/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

// Codes are unprefixed: clients branch on them verbatim.
var ErrRegistry = errx.NewRegistry("")

var (
	CodeMissingToken     = ErrRegistry.Register("MISSING_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Missing bearer token")
	CodeInvalidToken     = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid token")
	CodeTokenExpired     = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Token has expired")
	CodeAccessDenied     = ErrRegistry.Register("ACCESS_DENIED", errx.TypeForbidden, http.StatusForbidden, "Access denied")
	CodeInvalidRequest   = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Invalid request body")
	CodeTooManyAttempts  = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeRateLimit, http.StatusTooManyRequests, "Too many failed attempts; try again later")
	CodeAdminLoginFailed = ErrRegistry.Register("ADMIN_LOGIN_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid admin username or password")
)

// Helper functions
func ErrMissingToken() *errx.Error {
	return ErrRegistry.New(CodeMissingToken)
}

func ErrInvalidToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidToken)
}

func ErrTokenExpired() *errx.Error {
	return ErrRegistry.New(CodeTokenExpired)
}

func ErrAccessDenied() *errx.Error {
	return ErrRegistry.New(CodeAccessDenied)
}

func ErrInvalidRequest() *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest)
}

func ErrTooManyAttempts() *errx.Error {
	return ErrRegistry.New(CodeTooManyAttempts)
}

func ErrAdminLoginFailed() *errx.Error {
	return ErrRegistry.New(CodeAdminLoginFailed)
}
