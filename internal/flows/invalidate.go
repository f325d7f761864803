package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goOTP/internal"
)

type InvalidateErrors struct {
	EngineNotReady  error
	InvalidIdentity error
	Unavailable     error
}

type InvalidateDeps struct {
	StateDeps

	Errors InvalidateErrors
}

// RunInvalidate drops the identity's entry and leaves its attempt record alone.
func RunInvalidate(ctx context.Context, identity string, deps InvalidateDeps) (string, error) {
	identity = internal.NormalizeIdentity(identity)
	if !deps.ready() {
		return identity, deps.Errors.EngineNotReady
	}
	if identity == "" {
		return identity, deps.Errors.InvalidIdentity
	}

	unlock := deps.Lock(identity)
	defer unlock()

	if err := deps.Entries.Remove(ctx, identity); err != nil {
		return identity, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}
	return identity, nil
}

// RunResetAttempts clears the identity's failure record without touching its entry.
func RunResetAttempts(ctx context.Context, identity string, deps InvalidateDeps) (string, error) {
	identity = internal.NormalizeIdentity(identity)
	if !deps.ready() {
		return identity, deps.Errors.EngineNotReady
	}
	if identity == "" {
		return identity, deps.Errors.InvalidIdentity
	}

	unlock := deps.Lock(identity)
	defer unlock()

	if err := deps.Attempts.Clear(ctx, identity); err != nil {
		return identity, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}
	return identity, nil
}
