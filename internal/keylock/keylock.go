// Package keylock provides striped mutexes keyed by string.
//
// Two keys that hash to the same stripe share a mutex, so callers must never
// hold more than one stripe at a time.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const DefaultStripes = 256

type stripe struct {
	mu sync.Mutex
	_  [56]byte
}

// Striped serializes work per key without allocating a mutex per key.
type Striped struct {
	stripes []stripe
}

func New(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]stripe, n)}
}

func (s *Striped) slot(key string) *sync.Mutex {
	return &s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))].mu
}

// Lock acquires the stripe for key and returns its release function.
func (s *Striped) Lock(key string) func() {
	mu := s.slot(key)
	mu.Lock()
	return mu.Unlock
}

// Do runs fn while holding the stripe for key.
func (s *Striped) Do(key string, fn func()) {
	unlock := s.Lock(key)
	defer unlock()
	fn()
}
