package stores

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const memoryShardCount = 32

type entryShard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// MemoryEntryStore keeps entries in process memory, sharded by identity hash.
type MemoryEntryStore struct {
	shards [memoryShardCount]entryShard
}

func NewMemoryEntryStore() *MemoryEntryStore {
	s := &MemoryEntryStore{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]Entry)
	}
	return s
}

func (s *MemoryEntryStore) shard(identity string) *entryShard {
	return &s.shards[xxhash.Sum64String(identity)%memoryShardCount]
}

func (s *MemoryEntryStore) Put(_ context.Context, identity string, entry Entry) error {
	sh := s.shard(identity)
	sh.mu.Lock()
	sh.entries[identity] = entry
	sh.mu.Unlock()
	return nil
}

func (s *MemoryEntryStore) Get(_ context.Context, identity string) (Entry, bool, error) {
	sh := s.shard(identity)
	sh.mu.RLock()
	entry, ok := sh.entries[identity]
	sh.mu.RUnlock()
	return entry, ok, nil
}

func (s *MemoryEntryStore) Remove(_ context.Context, identity string) error {
	sh := s.shard(identity)
	sh.mu.Lock()
	delete(sh.entries, identity)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryEntryStore) Consume(_ context.Context, identity string, entry Entry) (bool, error) {
	sh := s.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.entries[identity]
	if !ok || !current.same(entry) {
		return false, nil
	}
	delete(sh.entries, identity)
	return true, nil
}

// Sweep removes every entry expired at now. Shards are locked one at a time,
// so request-path calls on other shards proceed during a sweep.
func (s *MemoryEntryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for i := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		sh := &s.shards[i]
		sh.mu.Lock()
		for identity, entry := range sh.entries {
			if entry.Expired(now) {
				delete(sh.entries, identity)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Range calls fn on a snapshot of each shard; fn may call back into the store.
func (s *MemoryEntryStore) Range(_ context.Context, fn func(identity string, entry Entry) bool) error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		snapshot := make(map[string]Entry, len(sh.entries))
		for identity, entry := range sh.entries {
			snapshot[identity] = entry
		}
		sh.mu.RUnlock()

		for identity, entry := range snapshot {
			if !fn(identity, entry) {
				return nil
			}
		}
	}
	return nil
}

func (s *MemoryEntryStore) Clear(_ context.Context) error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[string]Entry)
		sh.mu.Unlock()
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryEntryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
