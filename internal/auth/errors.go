// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import "errors"

// Sentinel errors for errors.Is dispatch across service, repository, and
// transport layers. Repositories and services wrap these with oops codes;
// the HTTP layer maps them to status codes.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint (username, email,
	// session token) is violated on create.
	ErrConflict = errors.New("already exists")

	// ErrInvalidCredentials covers both unknown username and password
	// mismatch. The two cases are deliberately indistinguishable to
	// prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountInactive is returned when credentials verify but the
	// account has been deactivated.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrSessionExpired is returned when a presented session token has
	// passed its expiry. The session row is gone by the time the caller
	// sees this error.
	ErrSessionExpired = errors.New("session has expired")

	// Reset token failures, in the order they are checked.
	ErrResetTokenInvalid = errors.New("reset token invalid")
	ErrResetTokenUsed    = errors.New("reset token already used")
	ErrResetTokenExpired = errors.New("reset token expired")
)
