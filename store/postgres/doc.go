// Package postgres implements store.Store on PostgreSQL through database/sql
// and lib/pq.
//
// Account units of work lock the account row with SELECT ... FOR UPDATE.
// Refresh rotation locks the refresh token row with FOR UPDATE NOWAIT;
// SQLSTATE 55P03 (lock_not_available) is reported as store.ErrLockNotAcquired.
// Deleting a session cascades to its refresh token through the foreign key.
//
// [Migrate] applies the embedded schema idempotently.
package postgres
