// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// tokenInsertAttempts bounds the retry loop on token hash collision.
// A collision on 256 bits of entropy indicates a broken RNG rather than
// bad luck, so the loop is short and the final failure is fatal.
const tokenInsertAttempts = 3

// dummyPasswordHash is verified when the username does not exist so the
// response time matches the real-user path. It is a bcrypt hash that is
// never associated with any account.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization, not a credential.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service provides login, session validation, and logout.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	ttl      time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSessionTTL overrides the nominal session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the time source, for deterministic tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a Service. All repositories and the hasher are required.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		ttl:      DefaultSessionTTL,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL returns the configured nominal session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// Login verifies a username/password pair and issues a session.
// Returns the session and the plaintext token on success. Unknown username
// and wrong password both yield ErrInvalidCredentials; a store failure is
// surfaced as-is and never downgraded to an unauthenticated success.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	// Verify against a dummy hash when the user is absent so both paths
	// pay the bcrypt cost.
	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			recordLogin("error")
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			recordLogin("rejected")
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		recordLogin("error")
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		recordLogin("rejected")
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Status is checked only after the password verified, so the inactive
	// answer does not leak whether the password was right.
	if !user.IsActive() {
		recordLogin("inactive")
		return nil, "", oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("user_id", user.ID).
			Wrap(ErrAccountInactive)
	}

	// Transparent work-factor upgrade. Best effort: login succeeds even
	// if the rewrite fails.
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
				s.logger.Warn("password rehash not persisted", "user_id", user.ID, "error", err)
			}
		}
	}

	session, token, err := s.issue(ctx, user)
	if err != nil {
		recordLogin("error")
		return nil, "", err
	}
	recordLogin("ok")
	return session, token, nil
}

// issue generates a fresh token and persists the session, retrying token
// generation on the (theoretical) hash collision.
func (s *Service) issue(ctx context.Context, user *User) (*Session, string, error) {
	var lastErr error
	for attempt := 0; attempt < tokenInsertAttempts; attempt++ {
		token, tokenHash, err := GenerateSessionToken()
		if err != nil {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "generate session token").
				Wrap(err)
		}

		session, err := NewSession(user, tokenHash, s.clock(), s.ttl)
		if err != nil {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "create session").
				Wrap(err)
		}

		err = s.sessions.Create(ctx, session)
		if err == nil {
			return session, token, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
				With("operation", "persist session").
				Wrap(err)
		}
		s.logger.Warn("session token collision, regenerating", "attempt", attempt+1)
		lastErr = err
	}
	return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
		With("attempts", tokenInsertAttempts).
		Wrap(lastErr)
}

// Validate resolves a bearer token to a Principal, applying the midpoint
// auto-extension policy. An expired session is deleted on sight, so a
// second call with the same token reports ErrNotFound.
func (s *Service) Validate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		recordValidation("rejected")
		return Principal{}, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrNotFound)
	}

	tokenHash := HashSessionToken(token)
	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordValidation("rejected")
			return Principal{}, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
		}
		recordValidation("error")
		return Principal{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := s.clock()
	if session.IsExpiredAt(now) {
		if delErr := s.sessions.Delete(ctx, tokenHash); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			s.logger.Warn("expired session not deleted", "error", delErr)
		}
		recordValidation("expired")
		return Principal{}, oops.Code("SESSION_EXPIRED").Wrap(ErrSessionExpired)
	}

	// Past the midpoint the expiry moves to now+TTL; before it only the
	// access timestamp moves. Concurrent validations race benignly here:
	// the worst case is one redundant extension.
	if session.ShouldExtendAt(now) {
		if err := s.sessions.Extend(ctx, tokenHash, now.Add(s.ttl), now); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session extension not persisted", "error", err)
		}
	} else {
		if err := s.sessions.Touch(ctx, tokenHash, now); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session access not persisted", "error", err)
		}
	}

	recordValidation("ok")
	return session.Principal(), nil
}

// Revoke deletes the session for a token. Revoking an absent or already
// revoked token is not an error.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessions.Delete(ctx, HashSessionToken(token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}
