package goVault

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/goVault/commitment"
	"github.com/MrEthical07/goVault/internal"
	internalaudit "github.com/MrEthical07/goVault/internal/audit"
	"github.com/MrEthical07/goVault/internal/flows"
	"github.com/MrEthical07/goVault/internal/keylock"
	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/password"
	"github.com/MrEthical07/goVault/session"
	"github.com/MrEthical07/goVault/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the credential and secret-protection service. It is produced by
// [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config Config
	clock  Clock
	random io.Reader
	logger *zap.Logger

	store     store.Store
	registry  session.Registry
	blacklist session.Blacklist

	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	dummyHash    string
	totp         *totpManager
	locks        *keylock.Locker

	totpLimiter   rate.Limiter
	backupLimiter rate.Limiter

	commitments *commitment.Engine

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	flows flows.Deps

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// Close stops the background sweeper and drains the audit dispatcher. It is safe
// to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepStop != nil {
			close(e.sweepStop)
			<-e.sweepDone
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of every counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Commitments exposes the Poseidon commitment engine, already initialised.
func (e *Engine) Commitments() *commitment.Engine {
	if e == nil {
		return nil
	}
	return e.commitments
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// metricIncInt matches the MetricInc field of the flow dependency sets.
func (e *Engine) metricIncInt(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock.Now()
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.passwordHash != nil && e.store != nil
}

func (e *Engine) startSweeper(interval time.Duration) {
	e.sweepStop = make(chan struct{})
	e.sweepDone = make(chan struct{})

	go func() {
		defer close(e.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.sweepStop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				res, err := flows.RunSweep(ctx, e.flows.Tokens)
				cancel()
				if err != nil {
					e.logger.Warn("refresh registry sweep failed", zap.Error(err))
					continue
				}
				if res.Revoked > 0 || res.Purged > 0 {
					e.logger.Debug("refresh registry swept",
						zap.Int("revoked", res.Revoked),
						zap.Int("purged", res.Purged),
					)
				}
			}
		}
	}()
}

func (e *Engine) resetVerifyLimiters(ctx context.Context, principalID string) {
	if e.totpLimiter != nil {
		_ = e.totpLimiter.Reset(ctx, "totp:"+principalID)
	}
	if e.backupLimiter != nil {
		_ = e.backupLimiter.Reset(ctx, "backup:"+principalID)
	}
}

func (e *Engine) deleteSecondFactor(ctx context.Context, principalID string) error {
	return flows.RunDisableTwoFactor(ctx, principalID, e.flows.TwoFactor)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	cfg := e.config

	return flows.Deps{
		Credentials: flows.CredentialDeps{
			UpgradeOnLogin:     cfg.Password.UpgradeOnLogin,
			DummyHash:          e.dummyHash,
			Now:                e.now,
			LoginEmail:         loginEmailFromContext,
			ClientIP:           clientIPFromContext,
			GetCredential:      e.store.GetCredential,
			CreateCredential:   e.store.CreateCredential,
			PutCredential:      e.store.PutCredential,
			DeleteCredential:   e.store.DeleteCredential,
			HashPassword:       e.passwordHash.HashContext,
			VerifyArgon2:       e.passwordHash.VerifyContext,
			VerifyBcrypt:       password.Bcrypt{}.Verify,
			NeedsRehash:        e.passwordHash.NeedsRehash,
			RevokeAll:          e.RevokeAll,
			DeleteSecondFactor: e.deleteSecondFactor,
			Logger:             e.logger,
			MetricInc:          e.metricIncInt,
			EmitAudit:          e.emitAudit,
			Metrics: flows.CredentialMetrics{
				RegisterSuccess:       int(MetricRegisterSuccess),
				RegisterDuplicate:     int(MetricRegisterDuplicate),
				LoginSuccess:          int(MetricLoginSuccess),
				LoginFailure:          int(MetricLoginFailure),
				HashUpgraded:          int(MetricHashUpgraded),
				HashUpgradeFailed:     int(MetricHashUpgradeFailed),
				PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
				PasswordChangeFailure: int(MetricPasswordChangeFailure),
			},
			Events: flows.CredentialEvents{
				Registered:           auditEventRegistered,
				LoginSuccess:         auditEventLoginSuccess,
				LoginFailed:          auditEventLoginFailed,
				HashUpgraded:         auditEventHashUpgraded,
				PasswordChanged:      auditEventPasswordChanged,
				PasswordChangeFailed: auditEventPasswordChangeFailed,
				CredentialDeleted:    auditEventCredentialDeleted,
			},
		},
		Tokens: flows.TokenDeps{
			MaxSessions:   cfg.Token.MaxConcurrentSessions,
			RotateRefresh: cfg.Token.RotateRefresh,
			Grace:         cfg.revokedGrace(),
			Now:           e.now,
			NewTokenID:    func() (string, error) { return internal.NewTokenID(e.random) },
			LockPrincipal: e.locks.Lock,
			CreateAccess:  e.jwtManager.CreateAccess,
			CreateRefresh: e.jwtManager.CreateRefresh,
			ParseAccess:   e.jwtManager.ParseAccess,
			ParseRefresh:  e.jwtManager.ParseRefresh,
			Registry:      e.registry,
			Blacklist:     e.blacklist,
			Logger:        e.logger,
			MetricInc:     e.metricIncInt,
			EmitAudit:     e.emitAudit,
			Metrics: flows.TokenMetrics{
				TokenIssued:         int(MetricTokenIssued),
				AccessVerified:      int(MetricAccessVerified),
				AccessRejected:      int(MetricAccessRejected),
				AccessBlacklisted:   int(MetricAccessBlacklisted),
				RefreshSuccess:      int(MetricRefreshSuccess),
				RefreshFailure:      int(MetricRefreshFailure),
				RefreshRotated:      int(MetricRefreshRotated),
				TokenRevoked:        int(MetricTokenRevoked),
				RevokeAll:           int(MetricRevokeAll),
				SessionLimitEvicted: int(MetricSessionLimitEvicted),
				SweepRevoked:        int(MetricSweepRevoked),
				SweepPurged:         int(MetricSweepPurged),
			},
			Events: flows.TokenEvents{
				TokenIssued:          auditEventTokenIssued,
				SessionLimitExceeded: auditEventSessionLimitExceeded,
				TokenRefreshed:       auditEventTokenRefreshed,
				TokenRefreshFailed:   auditEventTokenRefreshFailed,
				TokenRevoked:         auditEventTokenRevoked,
				SessionsRevoked:      auditEventSessionsRevoked,
				AccessBlacklisted:    auditEventAccessBlacklisted,
			},
		},
		TOTP: flows.TOTPDeps{
			EnforceReplay:   cfg.TwoFactor.EnforceReplayProtection,
			Now:             e.now,
			GetTOTP:         e.store.GetTOTP,
			PutTOTP:         e.store.PutTOTP,
			MarkTwoFactorOn: e.markTwoFactorOn,
			GenerateSecret:  e.totp.GenerateSecret,
			ProvisionURI:    e.totp.ProvisionURI,
			VerifyCode:      e.totp.VerifyCode,
			LockPrincipal:   e.locks.Lock,
			Limiter:         e.totpLimiter,
			Logger:          e.logger,
			MetricInc:       e.metricIncInt,
			EmitAudit:       e.emitAudit,
			Metrics: flows.TOTPMetrics{
				TOTPSetup:    int(MetricTOTPSetup),
				TOTPSuccess:  int(MetricTOTPSuccess),
				TOTPFailure:  int(MetricTOTPFailure),
				RateLimitHit: int(MetricRateLimitHit),
			},
			Events: flows.TOTPEvents{
				TOTPSetupRequested: auditEventTOTPSetupRequested,
				TOTPEnabled:        auditEventTOTPEnabled,
				TOTPSuccess:        auditEventTOTPSuccess,
				TOTPFailed:         auditEventTOTPFailed,
				TOTPRateLimited:    auditEventTOTPRateLimited,
			},
		},
		BackupCodes: flows.BackupCodeDeps{
			Count:              cfg.TwoFactor.BackupCodeCount,
			LowMark:            cfg.TwoFactor.BackupCodeLowWatermark,
			Now:                e.now,
			NewCode:            func() (string, error) { return internal.NewUpperHex(e.random, flows.BackupCodeLength) },
			NewCodeID:          uuid.NewString,
			HashCode:           e.passwordHash.HashContext,
			VerifyCode:         e.passwordHash.VerifyContext,
			ListBackupCodes:    e.store.ListBackupCodes,
			ReplaceBackupCodes: e.store.ReplaceBackupCodes,
			MarkBackupCodeUsed: e.store.MarkBackupCodeUsed,
			LockPrincipal:      e.locks.Lock,
			Limiter:            e.backupLimiter,
			Logger:             e.logger,
			MetricInc:          e.metricIncInt,
			EmitAudit:          e.emitAudit,
			Metrics: flows.BackupCodeMetrics{
				BackupCodeGenerated: int(MetricBackupCodeGenerated),
				BackupCodeUsed:      int(MetricBackupCodeUsed),
				BackupCodeFailed:    int(MetricBackupCodeFailed),
				RateLimitHit:        int(MetricRateLimitHit),
			},
			Events: flows.BackupCodeEvents{
				BackupCodesGenerated: auditEventBackupCodesGenerated,
				BackupCodeUsed:       auditEventBackupCodeUsed,
				BackupCodeFailed:     auditEventBackupCodeFailed,
				BackupCodesLow:       auditEventBackupCodesLow,
			},
		},
		SMS: flows.SMSDeps{
			MaxAttempts:        cfg.TwoFactor.SMSMaxAttempts,
			TTL:                cfg.TwoFactor.SMSTTL,
			Now:                e.now,
			NewCode:            func() (string, error) { return internal.NewDigits(e.random, flows.SMSCodeDigits) },
			PutSMSChallenge:    e.store.PutSMSChallenge,
			UpdateSMSChallenge: e.store.UpdateSMSChallenge,
			LockPrincipal:      e.locks.Lock,
			Logger:             e.logger,
			MetricInc:          e.metricIncInt,
			EmitAudit:          e.emitAudit,
			Metrics: flows.SMSMetrics{
				SMSIssued:  int(MetricSMSIssued),
				SMSSuccess: int(MetricSMSSuccess),
				SMSFailure: int(MetricSMSFailure),
			},
			Events: flows.SMSEvents{
				SMSIssued:   auditEventSMSIssued,
				SMSVerified: auditEventSMSVerified,
				SMSFailed:   auditEventSMSFailed,
			},
		},
		TwoFactor: flows.TwoFactorDeps{
			Now:                e.now,
			GetTwoFactorState:  e.store.GetTwoFactorState,
			PutTwoFactorState:  e.store.PutTwoFactorState,
			DeleteTOTP:         e.store.DeleteTOTP,
			DeleteBackupCodes:  e.store.DeleteBackupCodes,
			DeleteSMSChallenge: e.store.DeleteSMSChallenge,
			ResetLimiters:      e.resetVerifyLimiters,
			EmitAudit:          e.emitAudit,
			Events: flows.TwoFactorEvents{
				TwoFactorDisabled: auditEventTwoFactorDisabled,
			},
		},
	}
}
