package goOTP

import (
	"fmt"
	"time"
)

// LintSeverity grades a lint warning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
)

// LintWarning is an advisory finding for a configuration that validates but
// is probably not what the operator wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports advisory warnings. It never fails; call Validate for hard
// errors.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.Policy.StandardDigits < 6 {
		add("short_codes", LintWarn, "standard codes have %d digits; 6 or more is recommended", c.Policy.StandardDigits)
	}
	if c.Policy.StandardTTL > 15*time.Minute {
		add("ttl_long", LintWarn, "standard TTL %s exceeds 15m", c.Policy.StandardTTL)
	}
	if c.Policy.ExtendedTTL < c.Policy.StandardTTL {
		add("extended_ttl_shorter", LintInfo, "extended TTL %s is shorter than standard TTL %s", c.Policy.ExtendedTTL, c.Policy.StandardTTL)
	}
	if c.Policy.MaxFailedAttempts > 10 {
		add("lockout_threshold_high", LintWarn, "lockout after %d failures weakens brute-force protection", c.Policy.MaxFailedAttempts)
	}
	if c.Policy.LockoutWindow < c.Policy.StandardTTL {
		add("lockout_shorter_than_ttl", LintWarn, "lockout window %s is shorter than code TTL %s", c.Policy.LockoutWindow, c.Policy.StandardTTL)
	}
	if !c.Janitor.Enabled {
		add("janitor_disabled", LintInfo, "janitor disabled; expired state is only removed on access or explicit Sweep")
	}
	if c.Janitor.Enabled && c.Janitor.EntrySweepInterval > c.Policy.StandardTTL*4 {
		add("sweep_interval_long", LintInfo, "entry sweep interval %s is long relative to TTL %s", c.Janitor.EntrySweepInterval, c.Policy.StandardTTL)
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped when the buffer is full")
	}

	return ws
}
