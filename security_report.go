package goVault

import (
	"github.com/MrEthical07/goVault/internal/security"
	"github.com/MrEthical07/goVault/session"
)

// SecurityReport summarises the protective settings an engine was built with. It
// never contains secrets.
type SecurityReport = security.Report

// PasswordConfigReport is the argon2id part of a [SecurityReport].
type PasswordConfigReport = security.PasswordReport

// SecurityReport returns the posture of e. A nil engine yields the zero report.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, durable := e.registry.(*session.RedisRegistry)

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:      "HS256",
		AccessSecret:          e.config.Token.AccessSecret,
		RefreshSecret:         e.config.Token.RefreshSecret,
		AccessTTL:             e.config.Token.AccessTTL,
		RefreshTTL:            e.config.Token.RefreshTTL,
		RevokedGrace:          e.config.revokedGrace(),
		MaxConcurrentSessions: e.config.Token.MaxConcurrentSessions,
		RotateRefresh:         e.config.Token.RotateRefresh,
		DurableRegistry:       durable,
		Password: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		UpgradeOnLogin:       e.config.Password.UpgradeOnLogin,
		MaxVerifyAttempts:    e.config.TwoFactor.MaxVerifyAttempts,
		VerifyCooldown:       e.config.TwoFactor.VerifyCooldown,
		TOTPReplayProtection: e.config.TwoFactor.EnforceReplayProtection,
		SMSMaxAttempts:       e.config.TwoFactor.SMSMaxAttempts,
		BackupCodeCount:      e.config.TwoFactor.BackupCodeCount,
		AuditEnabled:         e.config.Audit.Enabled,
	})
}
