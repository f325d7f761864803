package goOTP

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
)

// Statistics is a point-in-time summary of engine state.
type Statistics struct {
	// ActiveCodes counts unexpired entries.
	ActiveCodes int
	// ExpiredCodes counts entries past their TTL that no sweep has removed yet.
	ExpiredCodes     int
	LockedIdentities int
	AttemptRecords   int
	CodesByCategory  map[Category]int
}

// SweepResult reports how much state one sweep removed.
type SweepResult struct {
	Entries  int
	Attempts int
}

func wrapBackend(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// IsLocked reports whether identity is currently locked out. It fails closed:
// a backend error reports true.
func (e *Engine) IsLocked(ctx context.Context, identity string) bool {
	if !e.ready() {
		return true
	}
	identity = internal.NormalizeIdentity(identity)
	if identity == "" {
		return false
	}

	locked, err := e.attempts.IsLocked(ctx, identity, e.clock.Now())
	if err != nil {
		e.logger.ErrorContext(ctx, "otp lock check failed", "identity", identity, "error", err)
		e.emitAudit(ctx, auditEventBackendDegraded, false, identity, "", auditErrUnavailable, nil)
		return true
	}
	return locked
}

// RemainingSeconds returns the whole seconds left on the identity's code, 0
// once it has expired but not yet been removed, and -1 when there is no code.
func (e *Engine) RemainingSeconds(ctx context.Context, identity string) int64 {
	entry, found := e.lookupEntry(ctx, identity)
	if !found {
		return -1
	}
	return int64(entry.Remaining(e.clock.Now()) / time.Second)
}

// LockoutRemainingMinutes returns the minutes until the identity's lockout
// lifts, rounded up, or 0 when it is not locked.
func (e *Engine) LockoutRemainingMinutes(ctx context.Context, identity string) int64 {
	if !e.ready() {
		return 0
	}
	identity = internal.NormalizeIdentity(identity)
	if identity == "" {
		return 0
	}

	now := e.clock.Now()
	record, found, err := e.attempts.Get(ctx, identity, now)
	if err != nil {
		e.logger.ErrorContext(ctx, "otp lockout lookup failed", "identity", identity, "error", err)
		return 0
	}
	if !found || !record.Locked(now, e.attempts.Config()) {
		return 0
	}

	return lockoutMinutes(record.LockedUntil(e.attempts.Config().Window).Sub(now))
}

func lockoutMinutes(left time.Duration) int64 {
	minutes := int64((left + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		return 1
	}
	return minutes
}

// HasCode reports whether identity has an unexpired code.
func (e *Engine) HasCode(ctx context.Context, identity string) bool {
	entry, found := e.lookupEntry(ctx, identity)
	return found && !entry.Expired(e.clock.Now())
}

// HasCodeOfCategory reports whether identity has an unexpired code issued
// for category.
func (e *Engine) HasCodeOfCategory(ctx context.Context, identity string, category Category) bool {
	entry, found := e.lookupEntry(ctx, identity)
	return found && !entry.Expired(e.clock.Now()) && Category(entry.Category) == category
}

// CategoryOf returns the category of the identity's unexpired code.
func (e *Engine) CategoryOf(ctx context.Context, identity string) (Category, bool) {
	entry, found := e.lookupEntry(ctx, identity)
	if !found || entry.Expired(e.clock.Now()) {
		return 0, false
	}
	return Category(entry.Category), true
}

// ActiveCodeCount counts unexpired codes across all identities.
func (e *Engine) ActiveCodeCount(ctx context.Context) (int, error) {
	stats, err := e.Statistics(ctx)
	if err != nil {
		return 0, err
	}
	return stats.ActiveCodes, nil
}

func (e *Engine) lookupEntry(ctx context.Context, identity string) (stores.Entry, bool) {
	if !e.ready() {
		return stores.Entry{}, false
	}
	identity = internal.NormalizeIdentity(identity)
	if identity == "" {
		return stores.Entry{}, false
	}

	entry, found, err := e.entries.Get(ctx, identity)
	if err != nil {
		e.logger.ErrorContext(ctx, "otp entry lookup failed", "identity", identity, "error", err)
		return stores.Entry{}, false
	}
	return entry, found
}

// Statistics walks both stores. On the Redis backend this scans the key
// prefix and is not meant for request paths.
func (e *Engine) Statistics(ctx context.Context) (Statistics, error) {
	if !e.ready() {
		return Statistics{}, e.notReadyErr()
	}

	now := e.clock.Now()
	stats := Statistics{CodesByCategory: make(map[Category]int, int(categoryCount))}

	err := e.entries.Range(ctx, func(_ string, entry stores.Entry) bool {
		if entry.Expired(now) {
			stats.ExpiredCodes++
			return true
		}
		stats.ActiveCodes++
		stats.CodesByCategory[Category(entry.Category)]++
		return true
	})
	if err != nil {
		return Statistics{}, wrapBackend(err)
	}

	cfg := e.attempts.Config()
	err = e.attempts.Range(ctx, func(_ string, record limiters.AttemptRecord) bool {
		stats.AttemptRecords++
		if record.Locked(now, cfg) {
			stats.LockedIdentities++
		}
		return true
	})
	if err != nil {
		return Statistics{}, wrapBackend(err)
	}

	return stats, nil
}

/*
====================================
SWEEPING
====================================
*/

// Sweep removes expired entries and attempt records now, independently of
// the janitor.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	if !e.ready() {
		return SweepResult{}, e.notReadyErr()
	}

	var result SweepResult
	var err error
	result.Entries, err = e.sweepEntries(ctx)
	e.observeSweep(ctx, sweepTaskEntries, result.Entries, err)
	if err != nil {
		return result, err
	}
	result.Attempts, err = e.sweepAttempts(ctx)
	e.observeSweep(ctx, sweepTaskAttempts, result.Attempts, err)
	if err != nil {
		return result, err
	}
	return result, nil
}

const (
	sweepTaskEntries  = "entries"
	sweepTaskAttempts = "attempts"
)

func (e *Engine) sweepEntries(ctx context.Context) (int, error) {
	removed, err := e.entries.Sweep(ctx, e.clock.Now())
	if err != nil && ctx.Err() != nil {
		return removed, ctx.Err()
	}
	if err != nil {
		return removed, wrapBackend(err)
	}
	return removed, nil
}

func (e *Engine) sweepAttempts(ctx context.Context) (int, error) {
	removed, err := e.attempts.Sweep(ctx, e.clock.Now())
	if err != nil && ctx.Err() != nil {
		return removed, ctx.Err()
	}
	if err != nil {
		return removed, wrapBackend(err)
	}
	return removed, nil
}

// observeJanitorSweep receives the outcome of every background sweep.
func (e *Engine) observeJanitorSweep(task string, removed int, err error) {
	e.observeSweep(context.Background(), task, removed, err)
}

// observeSweep records one sweep of store. Sweeps cut short by shutdown are
// not recorded.
func (e *Engine) observeSweep(ctx context.Context, store string, removed int, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	removedMetric := MetricJanitorEntriesRemoved
	if store == sweepTaskAttempts {
		removedMetric = MetricJanitorAttemptsRemoved
	}

	e.metricInc(MetricJanitorSweep)
	e.metricAdd(removedMetric, removed)
	if err != nil {
		e.metricInc(MetricJanitorSweepFailure)
	}
	if removed == 0 && err == nil {
		return
	}

	e.emitAudit(ctx, auditEventJanitorSweep, err == nil, "", "", auditErrorCode(err), func() map[string]string {
		return map[string]string{
			"store":   store,
			"removed": fmt.Sprint(removed),
		}
	})
}
