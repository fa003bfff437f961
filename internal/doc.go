// Package internal contains helpers private to authcore: opaque token
// generation and shape checks.
//
// # Sub-packages
//
//   - rate: Redis-backed fixed-window rate limiter
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
