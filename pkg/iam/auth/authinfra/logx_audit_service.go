package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogRegistration(ctx context.Context, email string, tenantID kernel.TenantID, userID kernel.UserID, success bool, code string, ip string) {
	entry(ctx, "registration", success, code, ip).WithFields(logx.Fields{
		"email":     email,
		"tenant_id": tenantID.String(),
		"user_id":   userID.String(),
	}).Info("Audit: registration")
}

func (s *LogxAuditService) LogTenantSwitch(ctx context.Context, email string, tenantID kernel.TenantID, userID kernel.UserID, success bool, code string, ip string) {
	entry(ctx, "tenant_switch", success, code, ip).WithFields(logx.Fields{
		"email":     email,
		"tenant_id": tenantID.String(),
		"user_id":   userID.String(),
	}).Info("Audit: tenant switch")
}

func (s *LogxAuditService) LogGateRejection(ctx context.Context, code string, path string, ip string) {
	entry(ctx, "gate_rejection", false, code, ip).WithField("path", path).Info("Audit: request rejected")
}

func (s *LogxAuditService) LogAdminLogin(ctx context.Context, username string, success bool, ip string) {
	entry(ctx, "admin_login", success, "", ip).WithField("username", username).Info("Audit: admin login")
}

func entry(ctx context.Context, event string, success bool, code string, ip string) *logx.Entry {
	fields := logx.Fields{
		"audit_event": event,
		"success":     success,
		"ip":          ip,
		"timestamp":   time.Now().UTC(),
	}
	if code != "" {
		fields["code"] = code
	}
	if rid, ok := ctx.Value(kernel.RequestIDKey).(string); ok && rid != "" {
		fields["request_id"] = rid
	}
	return logx.WithFields(fields)
}
