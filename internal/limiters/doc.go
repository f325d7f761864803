// Package limiters tracks failed verification attempts per identity and
// decides when an identity is locked out.
//
// # Policy
//
// Failures accumulate in a sliding window anchored on the most recent
// failure. Once the count reaches Threshold, the identity is locked until
// Window has elapsed since the last failure; the record is then discarded,
// not decremented. A failure recorded while locked refreshes the timestamp
// and so extends the lock.
//
// # Backends
//
//   - [LockoutTracker] keeps records in sharded process memory.
//   - [RedisLockoutTracker] keeps records in Redis and updates them with
//     WATCH/MULTI optimistic transactions.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
