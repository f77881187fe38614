package kernel

// ============================================================================
// Context Types - Tipos para context.Context
// ============================================================================

// PrincipalKind distingue tokens de usuario final de tokens de operador
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin"
)

// AuthContext es el contexto de autenticación que se inyecta en cada request
type AuthContext struct {
	Kind      PrincipalKind `json:"kind"`
	UserID    UserID        `json:"user_id,omitempty"`
	TenantID  TenantID      `json:"tenant_id,omitempty"`
	Email     string        `json:"email,omitempty"`
	AdminName string        `json:"admin_name,omitempty"`
}

// ============================================================================
// Validation Methods
// ============================================================================

// IsValid verifica si el AuthContext es válido
func (ac *AuthContext) IsValid() bool {
	if ac == nil {
		return false
	}
	if ac.Kind == PrincipalAdmin {
		return ac.AdminName != ""
	}
	return ac.Kind == PrincipalUser && !ac.UserID.IsEmpty() && !ac.TenantID.IsEmpty()
}

// IsAdmin verifica si el contexto pertenece a un operador
func (ac *AuthContext) IsAdmin() bool {
	return ac != nil && ac.Kind == PrincipalAdmin
}

// ============================================================================
// Context Keys - Claves para context.Context
// ============================================================================

type ContextKey string

const (
	// AuthContextKey es la clave para almacenar AuthContext en context.Context
	AuthContextKey ContextKey = "auth_context"

	// RequestIDKey es la clave para almacenar el ID de la petición
	RequestIDKey ContextKey = "request_id"
)
