// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// Role is the coarse permission level of a user. StackDesk has a single
// flat directory with exactly three roles.
type Role string

// Roles, from most to least privileged.
const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleReporter Role = "reporter"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEngineer, RoleReporter:
		return true
	}
	return false
}

// Status is the account lifecycle state.
type Status string

// Account states. An inactive user must never authenticate or hold a
// valid session.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that start with a letter and contain
// only letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is an identity and credential record. PasswordHash is opaque and
// never leaves this package.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	FullName     string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive returns true if the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ValidateUsername validates a username against rules:
//   - Length: MinUsernameLength to MaxUsernameLength characters
//   - Must start with a letter
//   - Can contain only letters, numbers, and underscores
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and fills in its generated ID.
	// Returns ErrConflict when the username or email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Delete removes a user. Sessions and reset tokens referencing the
	// user are invalidated by the store's cascade rules.
	Delete(ctx context.Context, id int64) error
}
