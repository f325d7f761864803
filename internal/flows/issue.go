package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/stores"
)

type IssueErrors struct {
	EngineNotReady  error
	InvalidIdentity error
	InvalidCategory error
	LockedOut       error
	Unavailable     error
	Generation      error
}

type IssueDeps struct {
	StateDeps

	Spec     func(category uint8) (CodeSpec, bool)
	Generate func(digits int) (string, error)
	Hash     func(code string) [32]byte

	Errors IssueErrors
}

type IssueRequest struct {
	Identity string
	Category uint8
}

type IssueResult struct {
	Identity string
	Code     string
	Entry    stores.Entry
	Err      error
}

// RunIssue generates a fresh code for the identity and replaces any entry it
// already had. Locked identities are refused before a code is generated.
func RunIssue(ctx context.Context, req IssueRequest, deps IssueDeps) IssueResult {
	identity := internal.NormalizeIdentity(req.Identity)
	result := IssueResult{Identity: identity}

	if !deps.ready() || deps.Spec == nil || deps.Generate == nil || deps.Hash == nil {
		result.Err = deps.Errors.EngineNotReady
		return result
	}
	if identity == "" {
		result.Err = deps.Errors.InvalidIdentity
		return result
	}
	spec, ok := deps.Spec(req.Category)
	if !ok {
		result.Err = deps.Errors.InvalidCategory
		return result
	}

	unlock := deps.Lock(identity)
	defer unlock()

	now := deps.Now()
	locked, err := deps.Attempts.IsLocked(ctx, identity, now)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
		return result
	}
	if locked {
		result.Err = deps.Errors.LockedOut
		return result
	}

	code, err := deps.Generate(spec.Digits)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", deps.Errors.Generation, err)
		return result
	}

	entry := stores.Entry{
		CodeHash: deps.Hash(code),
		IssuedAt: now,
		TTL:      spec.TTL,
		Category: req.Category,
		Digits:   uint8(spec.Digits),
	}
	if err := deps.Entries.Put(ctx, identity, entry); err != nil {
		result.Err = fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
		return result
	}

	result.Code = code
	result.Entry = entry
	return result
}
