package flows

import (
	"time"

	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Issue      IssueDeps
	Verify     VerifyDeps
	Invalidate InvalidateDeps
}

// CodeSpec is the code shape derived from a category.
type CodeSpec struct {
	Digits int
	TTL    time.Duration
}

// StateDeps are shared by every flow that touches OTP state.
type StateDeps struct {
	Now      func() time.Time
	Lock     func(identity string) func()
	Entries  stores.EntryStore
	Attempts limiters.AttemptTracker
}

func (d StateDeps) ready() bool {
	return d.Now != nil && d.Lock != nil && d.Entries != nil && d.Attempts != nil
}
