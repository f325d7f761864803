// Package goOTP issues and verifies short-lived numeric one-time passcodes
// bound to an identity and a use-case category.
//
// An [Engine] keeps at most one active code per identity, counts failed
// verifications in a sliding window and locks identities that reach the
// threshold, and evicts stale state from a background janitor. Engine methods
// are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Engine], [Builder], [Config],
// [Category] and value types (Statistics, MetricsSnapshot, AuditEvent). Code
// generation, entry storage, attempt tracking, per-identity locking and the
// janitor live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Deliver codes. Callers receive the plaintext code once from IssueCode
//     and are responsible for out-of-band delivery.
//   - Persist, log or audit plaintext codes. Stores hold a SHA-256 digest.
//   - Tell callers why a verification failed. Failures collapse to false;
//     the reason is visible only in logs, metrics and audit events.
//   - Issue session tokens. A verified identity is handed back to the caller.
package goOTP
