// Package rate provides the Redis-backed fixed-window limiter that authcore
// places in front of sign in and the confirmation, unlock and recovery
// request flows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// <prefix>:<endpoint>:<identity> with the identity trimmed and lowercased.
//
// # What this package must NOT do
//
//   - Decide which endpoints are limited (the engine passes the budgets).
//   - Be imported outside the authcore module.
package rate
