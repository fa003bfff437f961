package postgres

import (
	"fmt"

	"github.com/MrEthical07/authcore/store"
)

const accountColumns = `id, email, password_digest, confirmed, locked, failed_attempts, max_failed_attempts,
       authenticate_target_type, authenticate_target_id, created_at, updated_at`

const (
	insertAccountQuery = `INSERT INTO authcore_accounts (id, email, password_digest, confirmed, locked, failed_attempts,
       max_failed_attempts, authenticate_target_type, authenticate_target_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectAccountByIDQuery = `SELECT ` + accountColumns + `
FROM authcore_accounts
WHERE id = $1`

	selectAccountByEmailQuery = `SELECT ` + accountColumns + `
FROM authcore_accounts
WHERE LOWER(email) = LOWER($1)`

	selectAccountForUpdateQuery = selectAccountByIDQuery + `
FOR UPDATE`

	updateAccountQuery = `UPDATE authcore_accounts
SET password_digest = $2, confirmed = $3, locked = $4, failed_attempts = $5, max_failed_attempts = $6,
    authenticate_target_type = $7, authenticate_target_id = $8, updated_at = $9
WHERE id = $1`
)

const (
	insertSessionQuery = `INSERT INTO authcore_sessions (id, account_id, token, expired_at, origin, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertRefreshTokenQuery = `INSERT INTO authcore_refresh_tokens (id, session_id, token, expired_at, created_at)
VALUES ($1, $2, $3, $4, $5)`

	selectSessionByTokenQuery = `SELECT id, account_id, token, expired_at, origin, ip_address, user_agent, created_at
FROM authcore_sessions
WHERE token = $1`

	selectSessionByIDQuery = `SELECT id, account_id, token, expired_at, origin, ip_address, user_agent, created_at
FROM authcore_sessions
WHERE id = $1`

	selectRefreshTokenQuery = `SELECT id, session_id, token, expired_at, created_at
FROM authcore_refresh_tokens
WHERE token = $1`

	selectRefreshTokenNowaitQuery = selectRefreshTokenQuery + `
FOR UPDATE NOWAIT`

	deleteSessionQuery = `DELETE FROM authcore_sessions WHERE id = $1`

	deleteAccountSessionsQuery = `DELETE FROM authcore_sessions WHERE account_id = $1`
)

var tokenTables = map[store.TokenKind]string{
	store.TokenConfirmation: "authcore_confirmation_tokens",
	store.TokenRecovery:     "authcore_recovery_tokens",
	store.TokenUnlock:       "authcore_unlock_tokens",
}

func tokenTable(kind store.TokenKind) (string, error) {
	table, ok := tokenTables[kind]
	if !ok {
		return "", fmt.Errorf("postgres: unknown token kind %q", kind)
	}
	return table, nil
}

func selectTokenByValueQuery(table string) string {
	return `SELECT id, account_id, token, expired_at, created_at
FROM ` + table + `
WHERE token = $1`
}

func selectTokenByAccountQuery(table string) string {
	return `SELECT id, account_id, token, expired_at, created_at
FROM ` + table + `
WHERE account_id = $1`
}

func upsertTokenQuery(table string) string {
	return `INSERT INTO ` + table + ` (id, account_id, token, expired_at, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (account_id) DO UPDATE
SET id = EXCLUDED.id, token = EXCLUDED.token, expired_at = EXCLUDED.expired_at, created_at = EXCLUDED.created_at`
}

func deleteTokenQuery(table string) string {
	return `DELETE FROM ` + table + ` WHERE account_id = $1`
}
