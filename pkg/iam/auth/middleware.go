package auth

import (
	"context"
	"strings"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/gofiber/fiber/v2"
)

const (
	localsAuth      = "auth"
	localsPrincipal = "principal"
)

// Gate middleware para autenticación JWT con Fiber
type Gate struct {
	tokens TokenService
	repos  tenancy.Repositories
	audit  AuditService
}

// NewGate crea un nuevo middleware de autenticación
func NewGate(tokens TokenService, repos tenancy.Repositories, audit AuditService) *Gate {
	return &Gate{
		tokens: tokens,
		repos:  repos,
		audit:  audit,
	}
}

// Authenticate valida el token de usuario y carga usuario, tenant y
// asociación. Usuario o tenant ausentes o inactivos responden 401; una
// asociación ausente o inactiva responde 403.
func (g *Gate) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return g.reject(c, err)
		}

		claims, err := g.tokens.VerifyUser(token)
		if err != nil {
			return g.reject(c, err)
		}

		principal, err := g.load(c.UserContext(), claims)
		if err != nil {
			return g.reject(c, err)
		}

		authContext := claims.AuthContext()
		c.Locals(localsAuth, authContext)
		c.Locals(localsPrincipal, principal)
		c.SetUserContext(context.WithValue(c.UserContext(), kernel.AuthContextKey, authContext))

		return c.Next()
	}
}

// RequireAdmin acepta solo tokens de operador
func (g *Gate) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return g.reject(c, err)
		}

		claims, err := g.tokens.VerifyAdmin(token)
		if err != nil {
			return g.reject(c, err)
		}

		authContext := claims.AuthContext()
		c.Locals(localsAuth, authContext)
		c.SetUserContext(context.WithValue(c.UserContext(), kernel.AuthContextKey, authContext))

		return c.Next()
	}
}

func (g *Gate) load(ctx context.Context, claims *Claims) (*Principal, error) {
	user, err := g.repos.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errx.HasCode(err, tenancy.CodeUserNotFound) {
			return nil, tenancy.ErrUserInactive()
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, tenancy.ErrUserInactive()
	}

	tenant, err := g.repos.Tenants().FindByID(ctx, claims.TenantID)
	if err != nil {
		if errx.HasCode(err, tenancy.CodeTenantNotFound) {
			return nil, tenancy.ErrTenantInactive()
		}
		return nil, err
	}
	if !tenant.IsActive {
		return nil, tenancy.ErrTenantInactive()
	}

	membership, err := g.repos.UserTenants().Find(ctx, user.ID, tenant.ID)
	if err != nil {
		if errx.HasCode(err, tenancy.CodeAssociationNotFound) {
			return nil, tenancy.ErrAssociationInactive()
		}
		return nil, err
	}
	if !membership.IsActive {
		return nil, tenancy.ErrAssociationInactive()
	}

	return &Principal{Claims: claims, User: user, Tenant: tenant, Membership: membership}, nil
}

func (g *Gate) reject(c *fiber.Ctx, err error) error {
	if g.audit != nil {
		if code := errx.CodeOf(err); code != "" {
			g.audit.LogGateRejection(c.UserContext(), code, c.Path(), c.IP())
		}
	}
	return err
}

// bearerToken extrae el token del header Authorization o de la cookie de acceso
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.EqualFold(authHeader, "Bearer") {
		// esquema sin credencial
		return "", iam.ErrMissingToken()
	}
	if authHeader != "" {
		// Verificar formato "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", iam.ErrInvalidToken()
		}
		return strings.TrimSpace(token), nil
	}

	// Fallback: cookie "access_token"
	if token := c.Cookies("access_token"); token != "" {
		return token, nil
	}
	return "", iam.ErrMissingToken()
}

// GetPrincipal devuelve el triple cargado por Authenticate
func GetPrincipal(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(localsPrincipal).(*Principal)
	return p, ok && p != nil
}

// GetAuthContext devuelve el contexto de autenticación del request
func GetAuthContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	ac, ok := c.Locals(localsAuth).(*kernel.AuthContext)
	return ac, ok && ac != nil
}
