package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// GaugeDef names a point-in-time value read from engine statistics.
type GaugeDef struct {
	Name string
	Help string
	Read func(goOTP.Statistics) int64
}

var CounterDefs = []CounterDef{
	{ID: goOTP.MetricIssueSuccess, Name: "gootp_issue_success_total", Help: "Codes issued."},
	{ID: goOTP.MetricIssueLockedOut, Name: "gootp_issue_locked_out_total", Help: "Issuances refused because the identity was locked out."},
	{ID: goOTP.MetricIssueRejected, Name: "gootp_issue_rejected_total", Help: "Issuances rejected for an invalid identity or category."},
	{ID: goOTP.MetricIssueFailure, Name: "gootp_issue_failure_total", Help: "Issuances that failed on the backend or random source."},
	{ID: goOTP.MetricVerifySuccess, Name: "gootp_verify_success_total", Help: "Successful verifications."},
	{ID: goOTP.MetricVerifyFailure, Name: "gootp_verify_failure_total", Help: "Failed verifications, all reasons."},
	{ID: goOTP.MetricVerifyNoCode, Name: "gootp_verify_no_code_total", Help: "Verifications against an identity without a code."},
	{ID: goOTP.MetricVerifyExpired, Name: "gootp_verify_expired_total", Help: "Verifications against an expired code."},
	{ID: goOTP.MetricVerifyMismatch, Name: "gootp_verify_mismatch_total", Help: "Verifications with a wrong code."},
	{ID: goOTP.MetricVerifyCategoryMismatch, Name: "gootp_verify_category_mismatch_total", Help: "Verifications asserting the wrong category."},
	{ID: goOTP.MetricVerifyLocked, Name: "gootp_verify_locked_total", Help: "Verifications rejected because the identity was locked out."},
	{ID: goOTP.MetricVerifyInvalidInput, Name: "gootp_verify_invalid_input_total", Help: "Verifications with an empty identity or code."},
	{ID: goOTP.MetricVerifyUnavailable, Name: "gootp_verify_unavailable_total", Help: "Verifications failed closed on a backend error."},
	{ID: goOTP.MetricLockoutTriggered, Name: "gootp_lockout_triggered_total", Help: "Identities that reached the failure threshold."},
	{ID: goOTP.MetricInvalidation, Name: "gootp_invalidation_total", Help: "Explicit code invalidations."},
	{ID: goOTP.MetricAttemptsReset, Name: "gootp_attempts_reset_total", Help: "Administrative failure-count resets."},
	{ID: goOTP.MetricJanitorSweep, Name: "gootp_janitor_sweep_total", Help: "Store sweeps run."},
	{ID: goOTP.MetricJanitorSweepFailure, Name: "gootp_janitor_sweep_failure_total", Help: "Store sweeps that failed."},
	{ID: goOTP.MetricJanitorEntriesRemoved, Name: "gootp_janitor_entries_removed_total", Help: "Expired codes removed by sweeps."},
	{ID: goOTP.MetricJanitorAttemptsRemoved, Name: "gootp_janitor_attempts_removed_total", Help: "Expired attempt records removed by sweeps."},
}

var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricVerifyLatency, Name: "gootp_verify_latency_seconds", Help: "Verify latency histogram."},
}

var GaugeDefs = []GaugeDef{
	{Name: "gootp_active_codes", Help: "Unexpired codes.", Read: func(s goOTP.Statistics) int64 { return int64(s.ActiveCodes) }},
	{Name: "gootp_expired_codes", Help: "Expired codes awaiting a sweep.", Read: func(s goOTP.Statistics) int64 { return int64(s.ExpiredCodes) }},
	{Name: "gootp_locked_identities", Help: "Identities currently locked out.", Read: func(s goOTP.Statistics) int64 { return int64(s.LockedIdentities) }},
	{Name: "gootp_attempt_records", Help: "Identities with recorded failures.", Read: func(s goOTP.Statistics) int64 { return int64(s.AttemptRecords) }},
}

const AuditDroppedName = "gootp_audit_dropped_total"
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

const AuditDroppedByEventName = "gootp_audit_dropped_events_total"
const AuditDroppedByEventHelp = "Dropped audit events by event type."

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets.
var HistogramBounds = []string{
	"5e-05",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.005",
	"0.05",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_005",
	"0_05",
	"inf",
}

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
