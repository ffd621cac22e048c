package goVault

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token      TokenConfig
	Password   PasswordConfig
	TwoFactor  TwoFactorConfig
	Commitment CommitmentConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access/refresh signing and the refresh registry.
type TokenConfig struct {
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	MaxConcurrentSessions int

	// AccessSecret signs access tokens. RefreshSecret signs refresh tokens and
	// collapses to AccessSecret when empty.
	AccessSecret  []byte
	RefreshSecret []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// RotateRefresh retires the presented refresh token on every refresh and
	// returns a new pair.
	RotateRefresh bool

	// RevokedGrace is how long revoked records keep answering TOKEN_REVOKED. The
	// effective grace is never shorter than AccessTTL.
	RevokedGrace  time.Duration
	SweepInterval time.Duration

	// RedisPrefix namespaces registry and blacklist keys when Redis is configured.
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters new hashes are produced with.
type PasswordConfig struct {
	Memory              uint32
	Time                uint32
	Parallelism         uint8
	SaltLength          uint32
	KeyLength           uint32
	MinLength           int
	MaxPasswordBytes    int
	MaxConcurrentHashes int
	UpgradeOnLogin      bool
}

/*
====================================
TWO-FACTOR CONFIG
====================================
*/

// TwoFactorConfig controls TOTP, backup codes and SMS challenges.
type TwoFactorConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int

	BackupCodeCount        int
	BackupCodeLowWatermark int

	SMSMaxAttempts int
	SMSTTL         time.Duration

	// MaxVerifyAttempts and VerifyCooldown throttle TOTP and backup-code guesses.
	MaxVerifyAttempts int
	VerifyCooldown    time.Duration

	// EnforceReplayProtection rejects a TOTP code whose time step is not newer than
	// the last accepted one, so each code is good for a single use.
	EnforceReplayProtection bool
}

// CommitmentConfig controls balance-proof freshness.
type CommitmentConfig struct {
	MaxAge time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults. Secrets are left empty and must
// be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:             15 * time.Minute,
			RefreshTTL:            7 * 24 * time.Hour,
			MaxConcurrentSessions: 5,
			Issuer:                "govault",
			Audience:              "govault-clients",
			RevokedGrace:          15 * time.Minute,
			SweepInterval:         time.Hour,
			RedisPrefix:           "gv",
		},
		Password: PasswordConfig{
			Memory:              64 * 1024,
			Time:                3,
			Parallelism:         4,
			SaltLength:          16,
			KeyLength:           32,
			MinLength:           8,
			MaxPasswordBytes:    1024,
			MaxConcurrentHashes: runtime.GOMAXPROCS(0),
			UpgradeOnLogin:      true,
		},
		TwoFactor: TwoFactorConfig{
			Issuer:                 "goVault",
			Digits:                 6,
			Period:                 30,
			Algorithm:              "SHA1",
			Skew:                   2,
			BackupCodeCount:        10,
			BackupCodeLowWatermark: 2,
			SMSMaxAttempts:         5,
			SMSTTL:                 10 * time.Minute,
			MaxVerifyAttempts:      5,
			VerifyCooldown:         15 * time.Minute,

			EnforceReplayProtection: true,
		},
		Commitment: CommitmentConfig{
			MaxAge: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// revokedGrace is max(RevokedGrace, AccessTTL).
func (c *Config) revokedGrace() time.Duration {
	if c.Token.RevokedGrace > c.Token.AccessTTL {
		return c.Token.RevokedGrace
	}
	return c.Token.AccessTTL
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return invalidConfig("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return invalidConfig("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return invalidConfig("Token RefreshTTL must be >= AccessTTL")
	}
	if c.Token.MaxConcurrentSessions < 0 {
		return invalidConfig("Token MaxConcurrentSessions must be >= 0")
	}
	if len(c.Token.AccessSecret) < 32 {
		return invalidConfig("Token AccessSecret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) > 0 && len(c.Token.RefreshSecret) < 32 {
		return invalidConfig("Token RefreshSecret must be at least 32 bytes")
	}
	if strings.TrimSpace(c.Token.Issuer) == "" || strings.TrimSpace(c.Token.Audience) == "" {
		return invalidConfig("Token Issuer and Audience are required")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return invalidConfig("Token Leeway must be between 0 and 2m")
	}
	if c.Token.RevokedGrace < 0 {
		return invalidConfig("Token RevokedGrace must be >= 0")
	}
	if c.Token.SweepInterval <= 0 || c.Token.SweepInterval > time.Hour {
		return invalidConfig("Token SweepInterval must be in (0, 1h]")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return invalidConfig("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return invalidConfig("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return invalidConfig("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return invalidConfig("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return invalidConfig("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return invalidConfig("Password MinLength must be >= 1")
	}

	// Two-factor
	if c.TwoFactor.Digits != 6 && c.TwoFactor.Digits != 8 {
		return invalidConfig("TwoFactor Digits must be 6 or 8")
	}
	if c.TwoFactor.Period <= 0 {
		return invalidConfig("TwoFactor Period must be > 0")
	}
	if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 5 {
		return invalidConfig("TwoFactor Skew must be between 0 and 5")
	}
	switch strings.ToUpper(c.TwoFactor.Algorithm) {
	case "SHA1", "SHA256", "SHA512":
	default:
		return invalidConfig("TwoFactor Algorithm must be SHA1, SHA256 or SHA512")
	}
	if c.TwoFactor.BackupCodeCount <= 0 || c.TwoFactor.BackupCodeCount > 50 {
		return invalidConfig("TwoFactor BackupCodeCount must be between 1 and 50")
	}
	if c.TwoFactor.BackupCodeLowWatermark < 0 {
		return invalidConfig("TwoFactor BackupCodeLowWatermark must be >= 0")
	}
	if c.TwoFactor.SMSMaxAttempts <= 0 {
		return invalidConfig("TwoFactor SMSMaxAttempts must be > 0")
	}
	if c.TwoFactor.SMSTTL <= 0 {
		return invalidConfig("TwoFactor SMSTTL must be > 0")
	}
	if c.TwoFactor.MaxVerifyAttempts < 0 {
		return invalidConfig("TwoFactor MaxVerifyAttempts must be >= 0")
	}
	if c.TwoFactor.MaxVerifyAttempts > 0 && c.TwoFactor.VerifyCooldown <= 0 {
		return invalidConfig("TwoFactor VerifyCooldown must be > 0 when attempts are limited")
	}

	// Commitment
	if c.Commitment.MaxAge <= 0 {
		return invalidConfig("Commitment MaxAge must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: config: %s", ErrInvalidInput, msg)
}
