package flows

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/MrEthical07/goOTP/internal"
)

// Outcome classifies a verification attempt. Callers outside the engine only
// ever see success or failure.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidInput
	OutcomeLocked
	OutcomeNoCode
	OutcomeExpired
	OutcomeCategoryMismatch
	OutcomeMismatch
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeLocked:
		return "locked"
	case OutcomeNoCode:
		return "no_code"
	case OutcomeExpired:
		return "expired"
	case OutcomeCategoryMismatch:
		return "category_mismatch"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type VerifyDeps struct {
	StateDeps

	Hash func(code string) [32]byte
	// CountCategoryMismatch records a failed attempt when the asserted
	// category differs from the stored one.
	CountCategoryMismatch bool
}

type VerifyRequest struct {
	Identity       string
	Code           string
	Category       uint8
	AssertCategory bool
}

type VerifyResult struct {
	Outcome  Outcome
	Identity string
	// Category is the stored entry's category when an entry was found.
	Category      uint8
	FailureCount  int
	LockTriggered bool
	Err           error
}

func (r VerifyResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// RunVerify checks a submitted code. A lock blocks the attempt outright
// without touching the counter. Missing, expired and wrong codes count as
// failures; success consumes the entry and clears the counter.
func RunVerify(ctx context.Context, req VerifyRequest, deps VerifyDeps) VerifyResult {
	identity := internal.NormalizeIdentity(req.Identity)
	code := strings.TrimSpace(req.Code)
	result := VerifyResult{Identity: identity}

	if !deps.ready() || deps.Hash == nil {
		result.Outcome = OutcomeUnavailable
		return result
	}
	if identity == "" || code == "" {
		result.Outcome = OutcomeInvalidInput
		return result
	}

	unlock := deps.Lock(identity)
	defer unlock()

	now := deps.Now()
	locked, err := deps.Attempts.IsLocked(ctx, identity, now)
	if err != nil {
		result.Outcome = OutcomeUnavailable
		result.Err = err
		return result
	}
	if locked {
		result.Outcome = OutcomeLocked
		return result
	}

	entry, found, err := deps.Entries.Get(ctx, identity)
	if err != nil {
		result.Outcome = OutcomeUnavailable
		result.Err = err
		return result
	}
	if !found {
		result.Outcome = OutcomeNoCode
		recordFailure(ctx, &result, now, deps)
		return result
	}
	result.Category = entry.Category

	if entry.Expired(now) {
		result.Outcome = OutcomeExpired
		// A fresher entry written by another process in the meantime survives.
		if _, err := deps.Entries.Consume(ctx, identity, entry); err != nil {
			result.Err = err
		}
		recordFailure(ctx, &result, now, deps)
		return result
	}

	if req.AssertCategory && req.Category != entry.Category {
		result.Outcome = OutcomeCategoryMismatch
		if deps.CountCategoryMismatch {
			recordFailure(ctx, &result, now, deps)
		}
		return result
	}

	provided := deps.Hash(code)
	if subtle.ConstantTimeCompare(provided[:], entry.CodeHash[:]) != 1 {
		result.Outcome = OutcomeMismatch
		recordFailure(ctx, &result, now, deps)
		return result
	}

	consumed, err := deps.Entries.Consume(ctx, identity, entry)
	if err != nil {
		// Success must consume the code; if it cannot, fail closed.
		result.Outcome = OutcomeUnavailable
		result.Err = err
		return result
	}
	if !consumed {
		// Another verifier consumed or replaced the entry after our read.
		result.Outcome = OutcomeNoCode
		recordFailure(ctx, &result, now, deps)
		return result
	}
	if err := deps.Attempts.Clear(ctx, identity); err != nil {
		result.Err = err
	}
	result.Outcome = OutcomeSuccess
	return result
}

func recordFailure(ctx context.Context, result *VerifyResult, now time.Time, deps VerifyDeps) {
	record, err := deps.Attempts.RecordFailure(ctx, result.Identity, now)
	if err != nil {
		result.Err = err
		return
	}
	result.FailureCount = record.Failures
	result.LockTriggered = record.Failures == deps.Attempts.Config().Threshold
}
