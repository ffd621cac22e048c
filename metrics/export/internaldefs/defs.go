package internaldefs

import (
	"strings"

	goVault "github.com/MrEthical07/goVault"
)

// Prefix starts every exported metric name.
const Prefix = "govault_"

// Components group counters by the engine subsystem that increments them.
const (
	ComponentCredentials = "credentials"
	ComponentTokens      = "tokens"
	ComponentTwoFactor   = "twofactor"
	ComponentSharing     = "sharing"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID        goVault.MetricID
	Component string
	Name      string
	Help      string
}

// Event is the counter name without the prefix and _total suffix, e.g.
// "login_success".
func (d CounterDef) Event() string {
	return strings.TrimSuffix(strings.TrimPrefix(d.Name, Prefix), "_total")
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID        goVault.MetricID
	Component string
	Name      string
	Help      string
}

// Event is the histogram name without the prefix and _seconds suffix.
func (d HistogramDef) Event() string {
	return strings.TrimSuffix(strings.TrimPrefix(d.Name, Prefix), "_seconds")
}

// CounterGroup is the counters of one component, in exposition order.
type CounterGroup struct {
	Component string
	Counters  []CounterDef
}

// Groups splits CounterDefs by component, keeping first-seen component order.
func Groups() []CounterGroup {
	var groups []CounterGroup
	index := map[string]int{}
	for _, def := range CounterDefs {
		i, ok := index[def.Component]
		if !ok {
			i = len(groups)
			index[def.Component] = i
			groups = append(groups, CounterGroup{Component: def.Component})
		}
		groups[i].Counters = append(groups[i].Counters, def)
	}
	return groups
}

// CounterDefs lists every counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goVault.MetricRegisterSuccess, Component: ComponentCredentials, Name: "govault_register_success_total", Help: "Credentials registered."},
	{ID: goVault.MetricRegisterDuplicate, Component: ComponentCredentials, Name: "govault_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goVault.MetricLoginSuccess, Component: ComponentCredentials, Name: "govault_login_success_total", Help: "Successful password verifications."},
	{ID: goVault.MetricLoginFailure, Component: ComponentCredentials, Name: "govault_login_failure_total", Help: "Failed password verifications."},
	{ID: goVault.MetricHashUpgraded, Component: ComponentCredentials, Name: "govault_hash_upgraded_total", Help: "Password hashes migrated to current parameters."},
	{ID: goVault.MetricHashUpgradeFailed, Component: ComponentCredentials, Name: "govault_hash_upgrade_failed_total", Help: "Password hash migrations that failed to persist."},
	{ID: goVault.MetricPasswordChangeSuccess, Component: ComponentCredentials, Name: "govault_password_change_success_total", Help: "Successful password changes."},
	{ID: goVault.MetricPasswordChangeFailure, Component: ComponentCredentials, Name: "govault_password_change_failure_total", Help: "Password changes rejected."},
	{ID: goVault.MetricTokenIssued, Component: ComponentTokens, Name: "govault_token_issued_total", Help: "Access/refresh pairs issued."},
	{ID: goVault.MetricAccessVerified, Component: ComponentTokens, Name: "govault_access_verified_total", Help: "Access tokens accepted."},
	{ID: goVault.MetricAccessRejected, Component: ComponentTokens, Name: "govault_access_rejected_total", Help: "Access tokens rejected."},
	{ID: goVault.MetricAccessBlacklisted, Component: ComponentTokens, Name: "govault_access_blacklisted_total", Help: "Blacklist insertions and hits."},
	{ID: goVault.MetricRefreshSuccess, Component: ComponentTokens, Name: "govault_refresh_success_total", Help: "Successful refreshes."},
	{ID: goVault.MetricRefreshFailure, Component: ComponentTokens, Name: "govault_refresh_failure_total", Help: "Failed refreshes."},
	{ID: goVault.MetricRefreshRotated, Component: ComponentTokens, Name: "govault_refresh_rotated_total", Help: "Refreshes that rotated the refresh token."},
	{ID: goVault.MetricTokenRevoked, Component: ComponentTokens, Name: "govault_token_revoked_total", Help: "Refresh tokens revoked individually."},
	{ID: goVault.MetricRevokeAll, Component: ComponentTokens, Name: "govault_revoke_all_total", Help: "Revoke-all operations."},
	{ID: goVault.MetricSessionLimitEvicted, Component: ComponentTokens, Name: "govault_session_limit_evicted_total", Help: "Sessions evicted by the concurrent-session cap."},
	{ID: goVault.MetricSweepRevoked, Component: ComponentTokens, Name: "govault_sweep_revoked_total", Help: "Expired refresh records revoked by the sweeper."},
	{ID: goVault.MetricSweepPurged, Component: ComponentTokens, Name: "govault_sweep_purged_total", Help: "Revoked refresh records purged by the sweeper."},
	{ID: goVault.MetricTOTPSetup, Component: ComponentTwoFactor, Name: "govault_totp_setup_total", Help: "Authenticator secrets issued."},
	{ID: goVault.MetricTOTPSuccess, Component: ComponentTwoFactor, Name: "govault_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: goVault.MetricTOTPFailure, Component: ComponentTwoFactor, Name: "govault_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: goVault.MetricBackupCodeGenerated, Component: ComponentTwoFactor, Name: "govault_backup_code_generated_total", Help: "Backup-code batches generated."},
	{ID: goVault.MetricBackupCodeUsed, Component: ComponentTwoFactor, Name: "govault_backup_code_used_total", Help: "Backup codes consumed."},
	{ID: goVault.MetricBackupCodeFailed, Component: ComponentTwoFactor, Name: "govault_backup_code_failed_total", Help: "Backup codes rejected."},
	{ID: goVault.MetricSMSIssued, Component: ComponentTwoFactor, Name: "govault_sms_issued_total", Help: "SMS challenges issued."},
	{ID: goVault.MetricSMSSuccess, Component: ComponentTwoFactor, Name: "govault_sms_success_total", Help: "SMS challenges verified."},
	{ID: goVault.MetricSMSFailure, Component: ComponentTwoFactor, Name: "govault_sms_failure_total", Help: "SMS verifications rejected."},
	{ID: goVault.MetricRateLimitHit, Component: ComponentTwoFactor, Name: "govault_rate_limit_hit_total", Help: "Second-factor checks denied by the limiter."},
	{ID: goVault.MetricSecretSplit, Component: ComponentSharing, Name: "govault_secret_split_total", Help: "Secrets split into shares."},
	{ID: goVault.MetricSecretCombined, Component: ComponentSharing, Name: "govault_secret_combined_total", Help: "Secrets reconstructed from shares."},
}

// HistogramDefs lists every latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goVault.MetricVerifyLatency, Component: ComponentTokens, Name: "govault_verify_access_latency_seconds", Help: "VerifyAccess latency."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "govault_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last engine
// bucket is +Inf and has no entry.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
