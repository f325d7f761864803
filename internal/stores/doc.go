// Package stores provides the active-code entry store used by the OTP engine,
// with an in-memory backend and a Redis backend.
//
// # Design
//
// An identity owns at most one [Entry]. Put replaces unconditionally; entries
// are never mutated in place. Expiry is a pure function of the entry
// (now > IssuedAt+TTL) and is judged by callers on Get, while Sweep removes
// expired entries eagerly. Sweep re-checks each candidate atomically before
// removal, so an entry replaced after the candidate was observed survives.
//
// The Redis backend persists a versioned, binary-encoded record holding a
// SHA-256 digest of the code. Its key TTL carries a grace period so that the
// strict expiry predicate, not Redis eviction, decides validity.
//
// # Architecture boundaries
//
// This package owns persistence and atomicity of entries. It does NOT
// generate codes, count failures, or make verification decisions; those
// belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Log or persist plaintext codes.
package stores
