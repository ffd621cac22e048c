package security

import (
	"crypto/subtle"
	"time"
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is the derived, secret-free view of an engine's protective settings.
type Report struct {
	SigningAlgorithm      string
	SeparateRefreshKey    bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	RevokedGrace          time.Duration
	SessionCapActive      bool
	MaxConcurrentSessions int
	RefreshRotation       bool
	DurableRegistry       bool
	Argon2                PasswordReport
	UpgradeOnLogin        bool
	VerifyThrottleActive  bool
	TOTPReplayProtection  bool
	SMSMaxAttempts        int
	BackupCodeCount       int
	AuditEnabled          bool
}

// ReportInput carries raw configuration. Secrets are compared, never copied into
// the report.
type ReportInput struct {
	SigningAlgorithm      string
	AccessSecret          []byte
	RefreshSecret         []byte
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	RevokedGrace          time.Duration
	MaxConcurrentSessions int
	RotateRefresh         bool
	DurableRegistry       bool
	Password              PasswordReport
	UpgradeOnLogin        bool
	MaxVerifyAttempts     int
	VerifyCooldown        time.Duration
	TOTPReplayProtection  bool
	SMSMaxAttempts        int
	BackupCodeCount       int
	AuditEnabled          bool
}

func BuildReport(input ReportInput) Report {
	separate := len(input.RefreshSecret) > 0 &&
		subtle.ConstantTimeCompare(input.RefreshSecret, input.AccessSecret) != 1

	throttle := input.MaxVerifyAttempts > 0 &&
		input.VerifyCooldown > 0

	return Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		SeparateRefreshKey:    separate,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		RevokedGrace:          input.RevokedGrace,
		SessionCapActive:      input.MaxConcurrentSessions > 0,
		MaxConcurrentSessions: input.MaxConcurrentSessions,
		RefreshRotation:       input.RotateRefresh,
		DurableRegistry:       input.DurableRegistry,
		Argon2:                input.Password,
		UpgradeOnLogin:        input.UpgradeOnLogin,
		VerifyThrottleActive:  throttle,
		TOTPReplayProtection:  input.TOTPReplayProtection,
		SMSMaxAttempts:        input.SMSMaxAttempts,
		BackupCodeCount:       input.BackupCodeCount,
		AuditEnabled:          input.AuditEnabled,
	}
}
