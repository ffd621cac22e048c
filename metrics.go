package goVault

import (
	internalmetrics "github.com/MrEthical07/goVault/internal/metrics"
)

// MetricID identifies one engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricRegisterSuccess       = MetricID(internalmetrics.MetricRegisterSuccess)
	MetricRegisterDuplicate     = MetricID(internalmetrics.MetricRegisterDuplicate)
	MetricLoginSuccess          = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure          = MetricID(internalmetrics.MetricLoginFailure)
	MetricHashUpgraded          = MetricID(internalmetrics.MetricHashUpgraded)
	MetricHashUpgradeFailed     = MetricID(internalmetrics.MetricHashUpgradeFailed)
	MetricPasswordChangeSuccess = MetricID(internalmetrics.MetricPasswordChangeSuccess)
	MetricPasswordChangeFailure = MetricID(internalmetrics.MetricPasswordChangeFailure)
	MetricTokenIssued           = MetricID(internalmetrics.MetricTokenIssued)
	MetricAccessVerified        = MetricID(internalmetrics.MetricAccessVerified)
	MetricAccessRejected        = MetricID(internalmetrics.MetricAccessRejected)
	MetricAccessBlacklisted     = MetricID(internalmetrics.MetricAccessBlacklisted)
	MetricRefreshSuccess        = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure        = MetricID(internalmetrics.MetricRefreshFailure)
	MetricRefreshRotated        = MetricID(internalmetrics.MetricRefreshRotated)
	MetricTokenRevoked          = MetricID(internalmetrics.MetricTokenRevoked)
	MetricRevokeAll             = MetricID(internalmetrics.MetricRevokeAll)
	MetricSessionLimitEvicted   = MetricID(internalmetrics.MetricSessionLimitEvicted)
	MetricSweepRevoked          = MetricID(internalmetrics.MetricSweepRevoked)
	MetricSweepPurged           = MetricID(internalmetrics.MetricSweepPurged)
	MetricTOTPSetup             = MetricID(internalmetrics.MetricTOTPSetup)
	MetricTOTPSuccess           = MetricID(internalmetrics.MetricTOTPSuccess)
	MetricTOTPFailure           = MetricID(internalmetrics.MetricTOTPFailure)
	MetricBackupCodeGenerated   = MetricID(internalmetrics.MetricBackupCodeGenerated)
	MetricBackupCodeUsed        = MetricID(internalmetrics.MetricBackupCodeUsed)
	MetricBackupCodeFailed      = MetricID(internalmetrics.MetricBackupCodeFailed)
	MetricSMSIssued             = MetricID(internalmetrics.MetricSMSIssued)
	MetricSMSSuccess            = MetricID(internalmetrics.MetricSMSSuccess)
	MetricSMSFailure            = MetricID(internalmetrics.MetricSMSFailure)
	MetricRateLimitHit          = MetricID(internalmetrics.MetricRateLimitHit)
	MetricSecretSplit           = MetricID(internalmetrics.MetricSecretSplit)
	MetricSecretCombined        = MetricID(internalmetrics.MetricSecretCombined)
	MetricVerifyLatency         = MetricID(internalmetrics.MetricVerifyLatency)
)

// Metrics is the engine's counter set. See [internalmetrics.Metrics].
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy returned by [Engine.MetricsSnapshot].
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a counter set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
