package goVault

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte(strings.Repeat("k", 32))
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing access secret",
			mutate: func(c *Config) {
				c.Token.AccessSecret = nil
			},
			wantValid: false,
		},
		{
			name: "short access secret",
			mutate: func(c *Config) {
				c.Token.AccessSecret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "short refresh secret",
			mutate: func(c *Config) {
				c.Token.RefreshSecret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "separate refresh secret",
			mutate: func(c *Config) {
				c.Token.RefreshSecret = []byte(strings.Repeat("r", 32))
			},
			wantValid: true,
		},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.Token.RefreshTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "blank audience",
			mutate: func(c *Config) {
				c.Token.Audience = "   "
			},
			wantValid: false,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "sweep interval above an hour",
			mutate: func(c *Config) {
				c.Token.SweepInterval = 2 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "weak argon2 memory",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "totp algorithm valid",
			mutate: func(c *Config) {
				c.TwoFactor.Algorithm = "sha512"
			},
			wantValid: true,
		},
		{
			name: "totp algorithm invalid",
			mutate: func(c *Config) {
				c.TwoFactor.Algorithm = "MD5"
			},
			wantValid: false,
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.TwoFactor.VerifyCooldown = 0
			},
			wantValid: false,
		},
		{
			name: "throttle disabled",
			mutate: func(c *Config) {
				c.TwoFactor.MaxVerifyAttempts = 0
				c.TwoFactor.VerifyCooldown = 0
			},
			wantValid: true,
		},
		{
			name: "commitment max age zero",
			mutate: func(c *Config) {
				c.Commitment.MaxAge = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantValid && KindOf(err) != KindInvalidInput {
				t.Fatalf("expected %s, got %s (%v)", KindInvalidInput, KindOf(err), err)
			}
		})
	}
}

func TestBuildRejectsInvalidConfigAsInvalidInput(t *testing.T) {
	cfg := validTestConfig()
	cfg.Token.AccessSecret = []byte("short")

	_, err := New().WithConfig(cfg).Build()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("expected %s, got %s", KindInvalidInput, KindOf(err))
	}
}

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Token.AccessTTL != 15*time.Minute || cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token TTLs: %+v", cfg.Token)
	}
	if cfg.Token.MaxConcurrentSessions != 5 {
		t.Fatalf("unexpected session cap: %d", cfg.Token.MaxConcurrentSessions)
	}
	if cfg.Password.Memory != 65536 || cfg.Password.Time != 3 || cfg.Password.Parallelism != 4 || cfg.Password.KeyLength != 32 {
		t.Fatalf("unexpected argon2 defaults: %+v", cfg.Password)
	}
	if cfg.TwoFactor.BackupCodeCount != 10 || cfg.TwoFactor.SMSMaxAttempts != 5 || cfg.TwoFactor.SMSTTL != 10*time.Minute {
		t.Fatalf("unexpected two-factor defaults: %+v", cfg.TwoFactor)
	}
	if cfg.Commitment.MaxAge != time.Hour {
		t.Fatalf("unexpected commitment max age: %v", cfg.Commitment.MaxAge)
	}
}

func TestRevokedGraceNeverBelowAccessTTL(t *testing.T) {
	cfg := validTestConfig()
	cfg.Token.RevokedGrace = time.Minute
	if got := cfg.revokedGrace(); got != cfg.Token.AccessTTL {
		t.Fatalf("expected grace to be raised to AccessTTL, got %v", got)
	}
	cfg.Token.RevokedGrace = time.Hour
	if got := cfg.revokedGrace(); got != time.Hour {
		t.Fatalf("expected configured grace, got %v", got)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	cfg := validTestConfig()
	cfg.Password = fastPasswordConfig()
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	cfg.Token.AccessSecret[0] = 'X'
	if engine.config.Token.AccessSecret[0] != 'k' {
		t.Fatal("engine config must not alias caller-owned secrets")
	}
}
