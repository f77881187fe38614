package auth

import (
	"strings"

	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// AdminLoginRequest is the operator login payload.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminTokenResponse is returned by a successful operator login.
type AdminTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AdminHandlers serves the operator login.
type AdminHandlers struct {
	authenticator AdminAuthenticator
	tokens        TokenService
	guard         *AttemptGuard
	audit         AuditService
}

func NewAdminHandlers(authenticator AdminAuthenticator, tokens TokenService, guard *AttemptGuard, audit AuditService) *AdminHandlers {
	return &AdminHandlers{
		authenticator: authenticator,
		tokens:        tokens,
		guard:         guard,
		audit:         audit,
	}
}

// RegisterRoutes mounts POST /login on router.
func (h *AdminHandlers) RegisterRoutes(router fiber.Router) {
	router.Post("/login", h.Login)
}

// Login checks the operator password and issues an admin token.
func (h *AdminHandlers) Login(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrInvalidRequest().WithCause(err)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return iam.ErrInvalidRequest().WithDetail("field", "username,password")
	}

	ctx := c.UserContext()
	subject := strings.ToLower(username)
	if err := h.guard.Check(ctx, ScopeAdminLogin, subject); err != nil {
		return err
	}

	if !h.authenticator.Authenticate(username, req.Password) {
		h.guard.Fail(ctx, ScopeAdminLogin, subject)
		h.audit.LogAdminLogin(ctx, username, false, c.IP())
		return iam.ErrAdminLoginFailed()
	}

	issued, err := h.tokens.IssueAdminToken(username)
	if err != nil {
		return err
	}
	h.guard.Succeed(ctx, ScopeAdminLogin, subject)
	h.audit.LogAdminLogin(ctx, username, true, c.IP())
	logx.WithField("username", username).Info("Admin logged in")

	return c.JSON(AdminTokenResponse{
		AccessToken: issued.Token,
		TokenType:   "bearer",
		Username:    username,
		ExpiresIn:   issued.ExpiresIn(),
	})
}
