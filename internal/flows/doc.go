// Package flows contains pure-function orchestrators for every Engine operation
// that mutates OTP state.
//
// Each flow function (RunIssue, RunVerify, RunInvalidate) accepts a typed
// dependency struct and returns a result describing what happened. The root
// engine turns results into metrics, audit events and log lines, and collapses
// verification outcomes to a boolean.
//
// # Architecture boundaries
//
// Flow functions coordinate the entry store, the attempt tracker, the code
// generator and the per-identity lock. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goOTP (to avoid import cycles).
//   - Log, or return plaintext codes anywhere except IssueResult.Code.
package flows
