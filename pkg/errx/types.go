package errx

// Type represents the category of error
type Type string

const (
	// TypeInternal represents internal server errors
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents malformed input
	TypeValidation Type = "VALIDATION"

	// TypeAuthorization represents authentication failures (who are you)
	TypeAuthorization Type = "AUTHORIZATION"

	// TypeForbidden represents a known identity denied access to a resource
	TypeForbidden Type = "FORBIDDEN"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents uniqueness violations
	TypeConflict Type = "CONFLICT"

	// TypeBusiness represents business rule violations
	TypeBusiness Type = "BUSINESS"

	// TypeRateLimit represents throttled callers
	TypeRateLimit Type = "RATE_LIMIT"

	// TypeExternal represents errors from external services (the ERP)
	TypeExternal Type = "EXTERNAL"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}
