package goVault

import (
	"context"
	"errors"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/google/uuid"
)

const (
	auditEventRegistered           = "credential_registered"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailed          = "login_failed"
	auditEventHashUpgraded         = "password_hash_upgraded"
	auditEventPasswordChanged      = "password_changed"
	auditEventPasswordChangeFailed = "password_change_failed"
	auditEventCredentialDeleted    = "credential_deleted"

	auditEventTokenIssued          = "token_issued"
	auditEventSessionLimitExceeded = "SESSION_LIMIT_EXCEEDED"
	auditEventTokenRefreshed       = "token_refreshed"
	auditEventTokenRefreshFailed   = "token_refresh_failed"
	auditEventTokenRevoked         = "token_revoked"
	auditEventSessionsRevoked      = "sessions_revoked"
	auditEventAccessBlacklisted    = "access_blacklisted"

	auditEventTOTPSetupRequested = "totp_setup_requested"
	auditEventTOTPEnabled        = "totp_enabled"
	auditEventTOTPSuccess        = "totp_success"
	auditEventTOTPFailed         = "totp_failed"
	auditEventTOTPRateLimited    = "totp_rate_limited"

	auditEventBackupCodesGenerated = "backup_codes_generated"
	auditEventBackupCodeUsed       = "backup_code_used"
	auditEventBackupCodeFailed     = "backup_code_failed"
	auditEventBackupCodesLow       = "backup_codes_low"

	auditEventSMSIssued   = "sms_challenge_issued"
	auditEventSMSVerified = "sms_verified"
	auditEventSMSFailed   = "sms_failed"

	auditEventTwoFactorDisabled = "two_factor_disabled"
)

// auditCritical lists events that always warrant attention regardless of outcome.
var auditCritical = map[string]bool{
	auditEventTOTPRateLimited: true,
	auditEventBackupCodesLow:  true,
}

func auditSeverity(eventType string, success bool, err error) AuditSeverity {
	if auditCritical[eventType] {
		return SeverityCritical
	}
	// A refresh token presented after revocation is a replay signal.
	if eventType == auditEventTokenRefreshFailed && errors.Is(err, kinds.ErrTokenRevoked) {
		return SeverityCritical
	}
	if !success || eventType == auditEventSessionLimitExceeded {
		return SeverityWarning
	}
	return SeverityInfo
}

// emitAudit matches the EmitAudit field of every flow dependency set.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil || eventType == "" {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		Severity:    auditSeverity(eventType, success, err),
		PrincipalID: principalID,
		TokenID:     tokenID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if err != nil {
		event.Error = string(kinds.Of(err))
	}

	e.audit.Emit(ctx, event)
}
