package enrollmentapi

import (
	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment"
	"github.com/Abraxas-365/filesmile/pkg/iam/enrollment/enrollmentsrv"
	"github.com/gofiber/fiber/v2"
)

// EnrollmentHandlers exposes resolve, register and switch-tenant, plus the
// gate-protected caller views.
type EnrollmentHandlers struct {
	service *enrollmentsrv.Service
	gate    *auth.Gate
}

func NewEnrollmentHandlers(service *enrollmentsrv.Service, gate *auth.Gate) *EnrollmentHandlers {
	return &EnrollmentHandlers{service: service, gate: gate}
}

// RegisterRoutes mounts the handlers on the /auth group.
func (h *EnrollmentHandlers) RegisterRoutes(router fiber.Router) {
	router.Post("/tenant/resolve", h.Resolve)
	router.Post("/register", h.Register)
	router.Post("/switch-tenant", h.SwitchTenant)
	router.Get("/me", h.gate.Authenticate(), h.Me)
	router.Get("/tenants", h.gate.Authenticate(), h.Tenants)
}

// Resolve handles POST /auth/tenant/resolve
func (h *EnrollmentHandlers) Resolve(c *fiber.Ctx) error {
	var req enrollment.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	resp, err := h.service.Resolve(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Register handles POST /auth/register
func (h *EnrollmentHandlers) Register(c *fiber.Ctx) error {
	var req enrollment.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	resp, err := h.service.Register(c.UserContext(), req, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SwitchTenant handles POST /auth/switch-tenant
func (h *EnrollmentHandlers) SwitchTenant(c *fiber.Ctx) error {
	var req enrollment.SwitchTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	resp, err := h.service.SwitchTenant(c.UserContext(), req, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Me handles GET /auth/me
func (h *EnrollmentHandlers) Me(c *fiber.Ctx) error {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		return iam.ErrMissingToken()
	}
	return c.JSON(h.service.Me(p))
}

// Tenants handles GET /auth/tenants
func (h *EnrollmentHandlers) Tenants(c *fiber.Ctx) error {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		return iam.ErrMissingToken()
	}

	tenants, err := h.service.SwitchableTenants(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"current_tenant_id": p.Tenant.ID,
		"tenants":           tenants,
	})
}
