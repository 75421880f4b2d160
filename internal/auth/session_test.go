// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackdesk/stackdesk/internal/auth"
)

func testUser() *auth.User {
	return &auth.User{
		ID:       42,
		Username: "jsmith",
		Email:    "jsmith@stackdesk.local",
		Role:     auth.RoleEngineer,
		Status:   auth.StatusActive,
	}
}

func TestGenerateSessionToken(t *testing.T) {
	t.Run("produces 64 hex chars and matching hash", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, auth.SessionTokenBytes*2)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		token1, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		token2, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	t.Run("matching token verifies", func(t *testing.T) {
		assert.True(t, auth.VerifySessionToken(token, hash))
	})

	t.Run("wrong token fails", func(t *testing.T) {
		assert.False(t, auth.VerifySessionToken("wrong", hash))
	})

	t.Run("empty inputs fail", func(t *testing.T) {
		assert.False(t, auth.VerifySessionToken("", hash))
		assert.False(t, auth.VerifySessionToken(token, ""))
	})
}

func TestNewSession(t *testing.T) {
	now := time.Now()

	t.Run("valid session", func(t *testing.T) {
		session, err := auth.NewSession(testUser(), "somehash", now, auth.DefaultSessionTTL)
		require.NoError(t, err)
		assert.Equal(t, int64(42), session.UserID)
		assert.Equal(t, "jsmith", session.Username)
		assert.Equal(t, auth.RoleEngineer, session.Role)
		assert.Equal(t, now.Add(auth.DefaultSessionTTL), session.ExpiresAt)
		assert.Equal(t, now, session.LastAccessed)
	})

	t.Run("nil user rejected", func(t *testing.T) {
		_, err := auth.NewSession(nil, "somehash", now, auth.DefaultSessionTTL)
		assert.Error(t, err)
	})

	t.Run("empty hash rejected", func(t *testing.T) {
		_, err := auth.NewSession(testUser(), "", now, auth.DefaultSessionTTL)
		assert.Error(t, err)
	})

	t.Run("non-positive ttl rejected", func(t *testing.T) {
		_, err := auth.NewSession(testUser(), "somehash", now, 0)
		assert.Error(t, err)
	})
}

func TestSessionPrincipal(t *testing.T) {
	now := time.Now()
	session, err := auth.NewSession(testUser(), "somehash", now, time.Hour)
	require.NoError(t, err)

	principal := session.Principal()
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, "jsmith", principal.Username)
	assert.Equal(t, auth.RoleEngineer, principal.Role)
}

func TestSessionIsExpiredAt(t *testing.T) {
	now := time.Now()
	session, err := auth.NewSession(testUser(), "somehash", now, time.Hour)
	require.NoError(t, err)

	t.Run("before expiry", func(t *testing.T) {
		assert.False(t, session.IsExpiredAt(now.Add(59*time.Minute)))
	})

	t.Run("exactly at expiry", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(now.Add(time.Hour)))
	})

	t.Run("after expiry", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(now.Add(2*time.Hour)))
	})
}

func TestSessionShouldExtendAt(t *testing.T) {
	now := time.Now()
	ttl := 10 * time.Hour
	session, err := auth.NewSession(testUser(), "somehash", now, ttl)
	require.NoError(t, err)

	t.Run("before midpoint no extension", func(t *testing.T) {
		assert.False(t, session.ShouldExtendAt(now.Add(3*time.Hour)))
	})

	t.Run("exactly at midpoint no extension", func(t *testing.T) {
		assert.False(t, session.ShouldExtendAt(now.Add(5*time.Hour)))
	})

	t.Run("past midpoint extends", func(t *testing.T) {
		assert.True(t, session.ShouldExtendAt(now.Add(6*time.Hour)))
	})
}
