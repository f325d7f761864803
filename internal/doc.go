// Package internal contains helper utilities that are intentionally private to goOTP,
// including secure code generation and identity normalization.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for issuance and verification
//   - janitor: periodic background sweeper
//   - keylock: striped per-identity mutexes
//   - limiters: failed-attempt tracking and lockout (memory and Redis)
//   - stores: active code entry storage (memory and Redis)
//
// # What this package must NOT do
//
//   - Export types that appear in the public goOTP API.
//   - Be imported by any package outside the goOTP module.
package internal
