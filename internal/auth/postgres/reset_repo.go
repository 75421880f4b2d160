// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	pool poolIface
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(pool poolIface) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

// Create stores a new reset token.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		reset.ID.String(),
		reset.UserID,
		reset.TokenHash,
		reset.ExpiresAt,
		reset.Used,
		reset.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RESET_CONFLICT").
				With("user_id", reset.UserID).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset token").
			With("user_id", reset.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset token by its hash.
func (r *PasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.PasswordReset, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`, tokenHash)

	reset, err := scanReset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_BY_TOKEN_FAILED").
			With("operation", "get reset by token hash").
			Wrap(err)
	}
	return reset, nil
}

// InvalidateByUser marks all unused tokens for a user as used.
func (r *PasswordResetRepository) InvalidateByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used = TRUE
		WHERE user_id = $1 AND used = FALSE
	`, userID)
	if err != nil {
		return 0, oops.Code("RESET_INVALIDATE_FAILED").
			With("operation", "invalidate reset tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Consume marks the token used and writes the new password hash in a
// single transaction. If the token was consumed concurrently, the first
// update matches zero rows and the transaction rolls back, leaving the
// password untouched.
func (r *PasswordResetRepository) Consume(ctx context.Context, id ulid.ULID, userID int64, passwordHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	result, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`, id.String())
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "mark token used").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_USED").
			With("id", id.String()).
			Wrap(auth.ErrResetTokenUsed)
	}

	result, err = tx.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "update password hash").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(auth.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired reset tokens and returns the count.
// Used tokens past their expiry go too; they can never be honored again.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanReset scans a single row into a PasswordReset.
// Callers are responsible for handling pgx.ErrNoRows.
func scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		reset auth.PasswordReset
		idStr string
	)
	err := row.Scan(
		&idStr,
		&reset.UserID,
		&reset.TokenHash,
		&reset.ExpiresAt,
		&reset.Used,
		&reset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "scan reset token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").
			With("operation", "parse reset id").
			With("id", idStr).
			Wrap(err)
	}
	reset.ID = id
	return &reset, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
