// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

// Package auth implements the credential and session lifecycle for StackDesk.
//
// # Domain Types
//
// Domain types (User, Session, PasswordReset) should be created using their
// respective constructors:
//   - NewSession - creates a Session snapshot for a verified user
//   - NewPasswordReset - creates a PasswordReset with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, session validation with auto-extension, logout
//   - ResetService - one-time password reset token flow
//   - Sweeper - periodic removal of expired sessions and reset tokens
//
// Every protected operation in the surrounding application resolves its
// bearer token through Service.Validate; role checks are applied by the
// caller against the returned Principal.
package auth
