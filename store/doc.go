// Package store defines the persisted entities of authcore and the storage
// contracts the engine drives.
//
// # Units of work
//
// Every mutation of an Account and its single-use tokens goes through
// [AccountStore.UpdateAccount]: the backend loads the account and its live
// tokens under an exclusive lock (WATCH/MULTI on Redis, SELECT ... FOR UPDATE
// on Postgres), passes an [AccountTx] to the callback, and commits the staged
// changes atomically. Returning an error from the callback discards them.
//
// Refresh rotation goes through [SessionStore.RotateRefreshToken], which takes
// a non-blocking lock on the token and fails with [ErrLockNotAcquired] instead
// of waiting.
//
// # Token values
//
// Only [Digest] values of session, refresh and single-use tokens are
// persisted. Raw values leave the library once, when they are minted.
//
// Backends: store/redisstore and store/postgres.
package store
