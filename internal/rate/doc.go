// Package rate provides failed-attempt limiters for second-factor verification.
//
// # Window semantics
//
// [RedisLimiter] uses fixed-window counters: INCR + conditional EXPIRE on first hit,
// keys "rl:<prefix>:<key>". [LocalLimiter] uses an x/time/rate token bucket per key,
// held in a go-cache map so idle keys disappear. Both refuse once MaxAttempts
// failures land within a Cooldown.
//
// # What this package must NOT do
//
//   - Decide which operations are limited; the flows do.
//   - Be imported outside the goVault module.
package rate
