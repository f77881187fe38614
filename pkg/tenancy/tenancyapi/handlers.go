package tenancyapi

import (
	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/iam/auth"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/gofiber/fiber/v2"
)

// DirectoryHandlers is the operator surface over the Tenant Directory.
type DirectoryHandlers struct {
	service *tenancysrv.DirectoryService
}

func NewDirectoryHandlers(service *tenancysrv.DirectoryService) *DirectoryHandlers {
	return &DirectoryHandlers{service: service}
}

// RegisterRoutes mounts every route under /admin behind the admin gate.
// /admin/login is left to auth.AdminHandlers.
func (h *DirectoryHandlers) RegisterRoutes(router fiber.Router, gate *auth.Gate) {
	requireAdmin := gate.RequireAdmin()

	tenants := router.Group("/admin/tenants", requireAdmin)
	tenants.Get("/", h.ListTenants)
	tenants.Post("/", h.CreateTenant)
	tenants.Get("/:id", h.GetTenant)
	tenants.Put("/:id", h.UpdateTenant)
	tenants.Delete("/:id", h.DeleteTenant)
	tenants.Get("/:id/domains", h.TenantDomains)

	domains := router.Group("/admin/domains", requireAdmin)
	domains.Get("/", h.ResolveDomains)
	domains.Post("/", h.AddDomain)
	domains.Delete("/:id", h.RemoveDomain)

	users := router.Group("/admin/users", requireAdmin)
	users.Get("/", h.FindUser)
	users.Get("/:id", h.GetUser)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)
	users.Get("/:id/tenants", h.Memberships)
	users.Put("/:id/tenants/:tenant_id", h.SetMembership)
	users.Delete("/:id/tenants/:tenant_id", h.RemoveMembership)

	router.Post("/admin/validate-credentials", requireAdmin, h.ValidateCredentials)
}

// ============================================================================
// Tenants
// ============================================================================

func (h *DirectoryHandlers) ListTenants(c *fiber.Ctx) error {
	page, err := h.service.ListTenants(c.UserContext(), kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", kernel.DefaultPageSize),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *DirectoryHandlers) CreateTenant(c *fiber.Ctx) error {
	var req tenancy.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	dto, err := h.service.CreateTenant(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto)
}

func (h *DirectoryHandlers) GetTenant(c *fiber.Ctx) error {
	id, err := tenantParam(c, "id")
	if err != nil {
		return err
	}

	dto, err := h.service.GetTenant(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto)
}

func (h *DirectoryHandlers) UpdateTenant(c *fiber.Ctx) error {
	id, err := tenantParam(c, "id")
	if err != nil {
		return err
	}
	var req tenancy.UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	dto, err := h.service.UpdateTenant(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(dto)
}

func (h *DirectoryHandlers) DeleteTenant(c *fiber.Ctx) error {
	id, err := tenantParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteTenant(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DirectoryHandlers) TenantDomains(c *fiber.Ctx) error {
	id, err := tenantParam(c, "id")
	if err != nil {
		return err
	}

	domains, err := h.service.DomainsOf(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"domains": domains})
}

// ============================================================================
// Domains
// ============================================================================

func (h *DirectoryHandlers) ResolveDomains(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return iam.ErrInvalidRequest().WithDetail("field", "domain")
	}

	mappings, err := h.service.ResolveDomains(c.UserContext(), domain)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"domains": mappings})
}

func (h *DirectoryHandlers) AddDomain(c *fiber.Ctx) error {
	var req tenancy.AddDomainRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	d, err := h.service.AddDomain(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *DirectoryHandlers) RemoveDomain(c *fiber.Ctx) error {
	raw, ok := kernel.ParseID(c.Params("id"))
	if !ok {
		return iam.ErrInvalidRequest().WithDetail("field", "id")
	}

	if err := h.service.RemoveDomain(c.UserContext(), kernel.DomainID(raw)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ============================================================================
// Users and associations
// ============================================================================

func (h *DirectoryHandlers) FindUser(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return iam.ErrInvalidRequest().WithDetail("field", "email")
	}

	u, err := h.service.FindUser(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *DirectoryHandlers) GetUser(c *fiber.Ctx) error {
	id, err := userParam(c)
	if err != nil {
		return err
	}

	u, err := h.service.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *DirectoryHandlers) UpdateUser(c *fiber.Ctx) error {
	id, err := userParam(c)
	if err != nil {
		return err
	}
	var req tenancy.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}

	u, err := h.service.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *DirectoryHandlers) DeleteUser(c *fiber.Ctx) error {
	id, err := userParam(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DirectoryHandlers) Memberships(c *fiber.Ctx) error {
	id, err := userParam(c)
	if err != nil {
		return err
	}

	memberships, err := h.service.Memberships(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tenants": memberships})
}

// SetMembership toggles is_active on one association.
func (h *DirectoryHandlers) SetMembership(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return err
	}
	tenantID, err := tenantParam(c, "tenant_id")
	if err != nil {
		return err
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}
	if req.IsActive == nil {
		return iam.ErrInvalidRequest().WithDetail("field", "is_active")
	}

	if err := h.service.SetMembershipActive(c.UserContext(), userID, tenantID, *req.IsActive); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID, "tenant_id": tenantID, "is_active": *req.IsActive})
}

func (h *DirectoryHandlers) RemoveMembership(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return err
	}
	tenantID, err := tenantParam(c, "tenant_id")
	if err != nil {
		return err
	}

	if err := h.service.RemoveMembership(c.UserContext(), userID, tenantID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateCredentials checks the tenant admin account against its ERP.
func (h *DirectoryHandlers) ValidateCredentials(c *fiber.Ctx) error {
	var req tenancy.ValidateCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}
	if req.TenantID.IsEmpty() {
		return iam.ErrInvalidRequest().WithDetail("field", "tenant_id")
	}

	resp, err := h.service.ValidateAdminCredentials(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ============================================================================
// Helpers
// ============================================================================

func tenantParam(c *fiber.Ctx, name string) (kernel.TenantID, error) {
	raw, ok := kernel.ParseID(c.Params(name))
	if !ok {
		return 0, iam.ErrInvalidRequest().WithDetail("field", name)
	}
	return kernel.TenantID(raw), nil
}

func userParam(c *fiber.Ctx) (kernel.UserID, error) {
	raw, ok := kernel.ParseID(c.Params("id"))
	if !ok {
		return 0, iam.ErrInvalidRequest().WithDetail("field", "id")
	}
	return kernel.UserID(raw), nil
}
