// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `token_hash, user_id, username, role, created_at, expires_at, last_accessed`

// Create stores a new session. A primary key collision maps to
// ErrConflict so the caller regenerates the token instead of updating.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, username, role, created_at, expires_at, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		session.TokenHash,
		session.UserID,
		session.Username,
		string(session.Role),
		session.CreatedAt,
		session.ExpiresAt,
		session.LastAccessed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("SESSION_TOKEN_COLLISION").Wrap(auth.ErrConflict)
		}
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// Extend pushes the expiry forward and records the access.
func (r *SessionRepository) Extend(ctx context.Context, tokenHash string, expiresAt, lastAccessed time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $2, last_accessed = $3
		WHERE token_hash = $1
	`, tokenHash, expiresAt, lastAccessed)
	if err != nil {
		return oops.Code("SESSION_EXTEND_FAILED").
			With("operation", "update expiry").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Touch records the access without moving the expiry. last_accessed is
// kept monotonic at the store so concurrent touches cannot move it back.
func (r *SessionRepository) Touch(ctx context.Context, tokenHash string, lastAccessed time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET last_accessed = GREATEST(last_accessed, $2)
		WHERE token_hash = $1
	`, tokenHash, lastAccessed)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").
			With("operation", "update last_accessed").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session by token hash.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	// No ErrNotFound when nothing matched - that's a valid state.
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		session auth.Session
		roleStr string
	)
	err := row.Scan(
		&session.TokenHash,
		&session.UserID,
		&session.Username,
		&roleStr,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastAccessed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}
	session.Role = auth.Role(roleStr)
	return &session, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
