// Package iam is the identity side of the broker: it turns an email plus a
// pair of ERP credentials into a tenant-scoped session token, and checks that
// token on every protected request.
//
// # Overview
//
// The package is organized into sub-packages that work together:
//
//   - iam/auth           : JWT token service, request gate, attempt guard, admin login
//   - iam/auth/authinfra : bcrypt admin authenticator, Redis/in-memory limiters, logx audit
//   - iam/enrollment     : register, switch tenant, current principal
//   - iam/iamcontainer   : wires the whole graph from config
//
// Tenants, domains, users and their associations live in pkg/tenancy; the
// ERP probe lives in pkg/erp. This package never stores plaintext secrets:
// ERP credentials are sealed by pkg/vault before they reach the store.
//
// # Architecture
//
//	HTTP Handler  →  Service Layer  →  tenancy.Store  →  Infrastructure (Postgres/Memory)
//	                      ↓
//	                 erp.Gateway (one HTTP probe per validation)
//
// Each sub-domain exposes its own error registry. Codes are returned to the
// client as-is, e.g. TENANT_SELECTION_REQUIRED or STORED_CREDENTIALS_INVALID.
//
// # Registration
//
// POST /auth/register resolves the email domain to a tenant, asks the ERP
// whether the supplied pair authenticates, and only then writes anything.
// The user row and the (user, tenant) association are created or updated in
// one transaction:
//
//	resolve domain → choose tenant → ERP probe → seal secret → upsert → token
//
// A rejected pair leaves the store untouched. Registering again with
// different credentials replaces the stored ones and reactivates the
// association.
//
// # Switching tenants
//
// POST /auth/switch-tenant re-verifies the stored credentials for the target
// tenant against the ERP before issuing a token for it. Credentials that no
// longer decrypt, or that the ERP rejects, force the user back through
// registration.
//
// # Tokens
//
// Two kinds of HS256 tokens are issued with separate keys:
//
//	user   → sub=<user id>, tenant_id, email      (JWT_SECRET_KEY, default 24h)
//	admin  → sub=<operator name>                  (ADMIN_JWT_SECRET_KEY, default 8h)
//
// A token of one kind never verifies as the other, even when both keys are
// equal.
//
// # Middleware
//
// auth.Gate.Authenticate verifies a user token and then reloads the user,
// the tenant and the association. Any of them being inactive rejects the
// request, so deactivation takes effect without waiting for expiry:
//
//	api := app.Group("/api/v1")
//	api.Get("/files", container.Gate.Authenticate(), filesHandler)
//
//	func filesHandler(c *fiber.Ctx) error {
//		p, ok := auth.GetPrincipal(c)
//		if !ok {
//			return iam.ErrMissingToken()
//		}
//		return c.JSON(fiber.Map{"tenant": p.Tenant.Name})
//	}
//
// auth.Gate.RequireAdmin protects the operator routes under /admin.
//
// # Failed attempts
//
// Register, switch and admin login share an AttemptGuard. Only credential
// rejections count; after AUTH_MAX_FAILED_ATTEMPTS within the window the
// subject receives TOO_MANY_ATTEMPTS. If the limiter backend is down the
// guard lets the request through and logs a warning.
package iam
