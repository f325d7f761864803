package limiters

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const lockoutShardCount = 32

type attemptShard struct {
	mu      sync.Mutex
	records map[string]AttemptRecord
}

// LockoutTracker tracks failed attempts in process memory.
type LockoutTracker struct {
	config LockoutConfig
	shards [lockoutShardCount]attemptShard
}

// NewLockoutTracker creates an in-memory tracker.
func NewLockoutTracker(cfg LockoutConfig) *LockoutTracker {
	t := &LockoutTracker{config: cfg}
	for i := range t.shards {
		t.shards[i].records = make(map[string]AttemptRecord)
	}
	return t
}

func (t *LockoutTracker) shard(identity string) *attemptShard {
	return &t.shards[xxhash.Sum64String(identity)%lockoutShardCount]
}

func (t *LockoutTracker) Config() LockoutConfig {
	return t.config
}

// RecordFailure starts a fresh record when none exists or the previous
// window has elapsed; otherwise it increments and refreshes the timestamp.
func (t *LockoutTracker) RecordFailure(_ context.Context, identity string, now time.Time) (AttemptRecord, error) {
	sh := t.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev, found := sh.records[identity]
	next := nextRecord(prev, found, now, t.config.Window)
	sh.records[identity] = next
	return next, nil
}

// Get returns the live record for identity. Expired records read as absent.
func (t *LockoutTracker) Get(_ context.Context, identity string, now time.Time) (AttemptRecord, bool, error) {
	sh := t.shard(identity)
	sh.mu.Lock()
	record, ok := sh.records[identity]
	sh.mu.Unlock()

	if !ok || record.WindowExpired(now, t.config.Window) {
		return AttemptRecord{}, false, nil
	}
	return record, true, nil
}

func (t *LockoutTracker) IsLocked(ctx context.Context, identity string, now time.Time) (bool, error) {
	record, ok, err := t.Get(ctx, identity, now)
	if err != nil || !ok {
		return false, err
	}
	return record.Locked(now, t.config), nil
}

func (t *LockoutTracker) Clear(_ context.Context, identity string) error {
	sh := t.shard(identity)
	sh.mu.Lock()
	delete(sh.records, identity)
	sh.mu.Unlock()
	return nil
}

func (t *LockoutTracker) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for i := range t.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		sh := &t.shards[i]
		sh.mu.Lock()
		for identity, record := range sh.records {
			if record.WindowExpired(now, t.config.Window) {
				delete(sh.records, identity)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

func (t *LockoutTracker) Range(_ context.Context, fn func(identity string, record AttemptRecord) bool) error {
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		snapshot := make(map[string]AttemptRecord, len(sh.records))
		for identity, record := range sh.records {
			snapshot[identity] = record
		}
		sh.mu.Unlock()

		for identity, record := range snapshot {
			if !fn(identity, record) {
				return nil
			}
		}
	}
	return nil
}

func (t *LockoutTracker) ClearAll(_ context.Context) error {
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		sh.records = make(map[string]AttemptRecord)
		sh.mu.Unlock()
	}
	return nil
}
