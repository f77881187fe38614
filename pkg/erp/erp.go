// Package erp is the boundary with the external ERP. The only thing the
// broker asks of it is whether a credential pair authenticates against a
// tenant's environment.
package erp

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/filesmile/pkg/errx"
)

// Connection locates one tenant's ERP environment.
type Connection struct {
	BaseURL   string
	Company   string
	TabulaINI string
	AuthType  string
}

// Credentials is a plaintext pair. It only lives for the duration of a call.
type Credentials struct {
	Username string
	Secret   string
}

// IsEmpty reports whether either half is missing.
func (c Credentials) IsEmpty() bool {
	return c.Username == "" || c.Secret == ""
}

// Gateway performs a single read-only probe with the supplied credentials.
// Failures are always one of CREDENTIAL_AUTH_FAILED, CREDENTIAL_CONNECTION_FAILED
// or CREDENTIAL_TIMEOUT.
type Gateway interface {
	Validate(ctx context.Context, conn Connection, creds Credentials) error
	// ValidateAdmin probes a resource only administrators can read.
	ValidateAdmin(ctx context.Context, conn Connection, creds Credentials) error
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("")

var (
	CodeCredentialAuthFailed       = ErrRegistry.Register("CREDENTIAL_AUTH_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "ERP rejected the credentials")
	CodeCredentialConnectionFailed = ErrRegistry.Register("CREDENTIAL_CONNECTION_FAILED", errx.TypeExternal, http.StatusBadGateway, "Could not reach the ERP server")
	CodeCredentialTimeout          = ErrRegistry.Register("CREDENTIAL_TIMEOUT", errx.TypeExternal, http.StatusGatewayTimeout, "The ERP server did not answer in time")
)

func ErrCredentialAuthFailed() *errx.Error {
	return ErrRegistry.New(CodeCredentialAuthFailed)
}

func ErrCredentialConnectionFailed() *errx.Error {
	return ErrRegistry.New(CodeCredentialConnectionFailed)
}

func ErrCredentialTimeout() *errx.Error {
	return ErrRegistry.New(CodeCredentialTimeout)
}

// IsCredentialFailure reports whether err is one of the three gateway classes.
func IsCredentialFailure(err error) bool {
	return errx.HasCode(err, CodeCredentialAuthFailed) ||
		errx.HasCode(err, CodeCredentialConnectionFailed) ||
		errx.HasCode(err, CodeCredentialTimeout)
}
