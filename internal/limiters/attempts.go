package limiters

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutConfig holds the lockout policy.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
}

// AttemptRecord counts consecutive failures for one identity.
type AttemptRecord struct {
	Failures      int
	LastFailureAt time.Time
}

// WindowExpired reports whether the record's window has fully elapsed at now.
func (r AttemptRecord) WindowExpired(now time.Time, window time.Duration) bool {
	return now.After(r.LastFailureAt.Add(window))
}

// Locked reports whether the record locks its identity at now.
func (r AttemptRecord) Locked(now time.Time, cfg LockoutConfig) bool {
	return !r.WindowExpired(now, cfg.Window) && r.Failures >= cfg.Threshold
}

// LockedUntil returns when the lock placed by this record lifts.
func (r AttemptRecord) LockedUntil(window time.Duration) time.Time {
	return r.LastFailureAt.Add(window)
}

func nextRecord(prev AttemptRecord, found bool, now time.Time, window time.Duration) AttemptRecord {
	if !found || prev.WindowExpired(now, window) {
		return AttemptRecord{Failures: 1, LastFailureAt: now}
	}
	return AttemptRecord{Failures: prev.Failures + 1, LastFailureAt: now}
}

// AttemptTracker is implemented by every lockout backend.
type AttemptTracker interface {
	RecordFailure(ctx context.Context, identity string, now time.Time) (AttemptRecord, error)
	Get(ctx context.Context, identity string, now time.Time) (AttemptRecord, bool, error)
	IsLocked(ctx context.Context, identity string, now time.Time) (bool, error)
	Clear(ctx context.Context, identity string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
	Range(ctx context.Context, fn func(identity string, record AttemptRecord) bool) error
	ClearAll(ctx context.Context) error
	Config() LockoutConfig
}
