package domain

import "time"

// Audit actions recorded by the core flows.
const (
	AuditLogin                  = "user.login"
	AuditLoginFailed            = "user.login_failed"
	AuditLogout                 = "user.logout"
	AuditMFAEnrolled            = "mfa.enrolled"
	AuditMFAReset               = "mfa.reset"
	AuditRecoveryCodeUsed       = "mfa.recovery_code_used"
	AuditPasswordResetRequested = "password.reset_requested"
	AuditPasswordResetRedeemed  = "password.reset_redeemed"
	AuditAdminUserCreated       = "admin.user_created"
	AuditAdminUserUpdated       = "admin.user_updated"
	AuditAdminUserDeleted       = "admin.user_deleted"
)

// AuditEvent is a best-effort record of something that happened. Writes to
// the audit sink must never abort the flow that produced them.
type AuditEvent struct {
	ID        string
	Action    string
	ActorID   string // empty for anonymous actions, e.g. failed logins
	TargetID  string // usually a user id
	Detail    string // small free-form context, never secrets
	CreatedAt time.Time
}
