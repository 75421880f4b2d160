// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32                 // 32 bytes = 64 hex chars, 256 bits of entropy
	DefaultSessionTTL = 7 * 24 * time.Hour // nominal lifetime before extension
)

// Principal is the resolved identity derived from a validated token.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Session is a live authentication grant. Username and Role are snapshots
// taken at issuance and are intentionally not re-read from the user row on
// validation; a mid-session role change takes effect at next login.
type Session struct {
	TokenHash    string
	UserID       int64
	Username     string
	Role         Role
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
}

// NewSession creates a validated Session for a verified user. The caller
// supplies the token hash; the plaintext token never reaches the store.
func NewSession(user *User, tokenHash string, now time.Time, ttl time.Duration) (*Session, error) {
	if user == nil || user.ID == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user is required")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").With("ttl", ttl).Errorf("ttl must be positive")
	}
	return &Session{
		TokenHash:    tokenHash,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}, nil
}

// Principal returns the denormalized identity carried by the session row.
func (s *Session) Principal() Principal {
	return Principal{UserID: s.UserID, Username: s.Username, Role: s.Role}
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// ShouldExtendAt reports whether a validation at time t falls past the
// midpoint of the session's current lifetime. Extending only past the
// midpoint keeps active users logged in indefinitely while idle sessions
// lapse at no more than 1.5x the nominal TTL after last real use.
func (s *Session) ShouldExtendAt(t time.Time) bool {
	midpoint := s.CreatedAt.Add(s.ExpiresAt.Sub(s.CreatedAt) / 2)
	return t.After(midpoint)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token goes
// to the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token. The hash
// is the session's storage key, so a stolen database dump cannot be
// replayed against the API.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks a plaintext token against a stored hash using
// constant-time comparison.
func VerifySessionToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashSessionToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// SessionRepository manages session persistence. Implementations delegate
// all coordination to the backing store's row-level consistency; the
// read-then-write in Validate is a benign race.
type SessionRepository interface {
	// Create stores a new session. Returns ErrConflict if the token hash
	// already exists; callers must retry with a fresh token, never update.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Extend pushes the expiry forward and records the access.
	Extend(ctx context.Context, tokenHash string, expiresAt, lastAccessed time.Time) error

	// Touch records the access without moving the expiry.
	Touch(ctx context.Context, tokenHash string, lastAccessed time.Time) error

	// Delete removes a session. Returns ErrNotFound if absent.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all sessions expired as of now and returns
	// the count of deleted rows.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
