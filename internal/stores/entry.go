package stores

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable indicates the entry backend could not be reached.
	ErrUnavailable = errors.New("entry store unavailable")

	errInvalidRecord = errors.New("invalid entry record")
)

// Entry is the active code record for one identity.
type Entry struct {
	CodeHash [32]byte
	IssuedAt time.Time
	TTL      time.Duration
	Category uint8
	Digits   uint8
}

func (e Entry) ExpiresAt() time.Time {
	return e.IssuedAt.Add(e.TTL)
}

// Expired reports whether now is strictly past IssuedAt+TTL.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// same reports whether two entries describe the same issuance.
func (e Entry) same(other Entry) bool {
	return e.CodeHash == other.CodeHash &&
		e.IssuedAt.Equal(other.IssuedAt) &&
		e.TTL == other.TTL &&
		e.Category == other.Category &&
		e.Digits == other.Digits
}

// Remaining returns the time left before expiry, never negative.
func (e Entry) Remaining(now time.Time) time.Duration {
	left := e.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// EntryStore is implemented by every entry backend.
type EntryStore interface {
	Put(ctx context.Context, identity string, entry Entry) error
	Get(ctx context.Context, identity string) (Entry, bool, error)
	Remove(ctx context.Context, identity string) error
	// Consume removes the identity's entry only while it still equals entry,
	// reporting whether this call removed it. Of several callers consuming
	// the same entry, at most one sees true.
	Consume(ctx context.Context, identity string, entry Entry) (bool, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
	Range(ctx context.Context, fn func(identity string, entry Entry) bool) error
	Clear(ctx context.Context) error
}
