// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes = 32        // 32 bytes = 64 hex chars
	DefaultResetTTL = time.Hour // short window by design
)

// PasswordReset is a one-time capability to change a password without an
// active session. At most one unused token exists per user; issuing a new
// one invalidates prior outstanding tokens.
type PasswordReset struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// NewPasswordReset creates a validated PasswordReset.
func NewPasswordReset(userID int64, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	if userID == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &PasswordReset{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (r *PasswordReset) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// GenerateResetToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token is
// handed to the delivery collaborator; only the hash is stored.
func GenerateResetToken() (token, hash string, err error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

// hashResetToken computes the SHA256 hash of a reset token.
func hashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// PasswordResetRepository manages password reset persistence.
type PasswordResetRepository interface {
	// Create stores a new reset token.
	Create(ctx context.Context, reset *PasswordReset) error

	// GetByTokenHash retrieves a reset token by its hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error)

	// InvalidateByUser marks all unused tokens for a user as used and
	// returns how many were invalidated.
	InvalidateByUser(ctx context.Context, userID int64) (int64, error)

	// Consume atomically marks the token used and updates the owner's
	// password hash in a single transaction. Returns ErrResetTokenUsed
	// if the token was already consumed by a concurrent request.
	Consume(ctx context.Context, id ulid.ULID, userID int64, passwordHash string) error

	// DeleteExpired removes all expired reset tokens and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
