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

// ResetTokenSender delivers a plaintext reset token out of band. The email
// subsystem implements this; tests substitute a capture fake.
type ResetTokenSender interface {
	SendResetToken(ctx context.Context, email, token string) error
}

// ResetService handles the one-time password reset flow.
type ResetService struct {
	users  UserRepository
	resets PasswordResetRepository
	hasher PasswordHasher
	sender ResetTokenSender
	ttl    time.Duration
	logger *slog.Logger
	clock  func() time.Time
}

// ResetServiceOption customizes a ResetService.
type ResetServiceOption func(*ResetService)

// WithResetTTL overrides the reset token lifetime.
func WithResetTTL(ttl time.Duration) ResetServiceOption {
	return func(s *ResetService) { s.ttl = ttl }
}

// WithResetLogger sets the service logger.
func WithResetLogger(logger *slog.Logger) ResetServiceOption {
	return func(s *ResetService) { s.logger = logger }
}

// WithResetClock sets the time source, for deterministic tests.
func WithResetClock(clock func() time.Time) ResetServiceOption {
	return func(s *ResetService) { s.clock = clock }
}

// NewResetService creates a ResetService. All dependencies are required.
func NewResetService(users UserRepository, resets PasswordResetRepository, hasher PasswordHasher, sender ResetTokenSender, opts ...ResetServiceOption) (*ResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("users repository is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("resets repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("password hasher is required")
	}
	if sender == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("token sender is required")
	}
	s := &ResetService{
		users:  users,
		resets: resets,
		hasher: hasher,
		sender: sender,
		ttl:    DefaultResetTTL,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestReset issues a reset token for the active user with the given
// email and hands it to the delivery collaborator. When no such user
// exists, or the account is inactive, it returns success without issuing
// anything: the caller's response must not reveal account existence.
// Outstanding unused tokens for the user are invalidated first, so at most
// one token can ever be consumed.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordResetRequest("unknown_email")
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	if !user.IsActive() {
		recordResetRequest("inactive")
		return nil
	}

	if _, err := s.resets.InvalidateByUser(ctx, user.ID); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "invalidate outstanding tokens").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	reset, err := NewPasswordReset(user.ID, hash, s.clock().Add(s.ttl))
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "create reset record").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset").
			Wrap(err)
	}

	// Delivery is best effort. Surfacing a sender failure here would make
	// the response differ between matched and unmatched emails.
	if err := s.sender.SendResetToken(ctx, user.Email, token); err != nil {
		s.logger.Warn("reset token delivery failed", "user_id", user.ID, "error", err)
	}

	recordResetRequest("issued")
	return nil
}

// ConsumeReset validates a reset token and changes the owner's password.
// Marking the token used and writing the new hash happen in one store
// transaction; a failure of either leaves both untouched.
func (s *ResetService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}
	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	reset, err := s.resets.GetByTokenHash(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "get reset by token hash").
			Wrap(err)
	}

	if reset.Used {
		return oops.Code("RESET_TOKEN_USED").Wrap(ErrResetTokenUsed)
	}
	if reset.IsExpiredAt(s.clock()) {
		return oops.Code("RESET_TOKEN_EXPIRED").Wrap(ErrResetTokenExpired)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.resets.Consume(ctx, reset.ID, reset.UserID, hash); err != nil {
		if errors.Is(err, ErrResetTokenUsed) {
			// Lost a race with a concurrent consume of the same token.
			return oops.Code("RESET_TOKEN_USED").Wrap(ErrResetTokenUsed)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "consume reset").
			Wrap(err)
	}

	s.logger.Info("password reset completed", "user_id", reset.UserID)
	return nil
}
