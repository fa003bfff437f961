// Package authcore provides the credential verification, lockout, session
// and single-use token lifecycle of an account system.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Every operation is synchronous and starts no goroutines;
// expiry is evaluated lazily against the injected [Clock].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the component types ([CredentialStore], [Authenticator], [LockoutPolicy],
// [SessionManager], [RefreshRotator], [ConfirmationService],
// [RecoveryService]) and the collaborators a host implements ([Notifier],
// [Clock], [RateLimiter]). Persistence lives behind [store.Store], with Redis
// and Postgres backends in store/redisstore and store/postgres.
//
// # What this package must NOT do
//
//   - Persist or log raw token values. Only SHA-256 digests are stored.
//   - Reveal why an authentication or refresh failed. Callers see
//     [ErrInvalidCredentials] and [ErrInvalidRefreshToken].
//   - Wait on a refresh token lock. Contention is an ordinary failure.
//
// # Cost contract
//
// Authenticate costs one Argon2id computation whether or not the email
// exists, unless timing-attack mitigation is disabled.
package authcore
