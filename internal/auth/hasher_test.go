// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// testCost keeps the hashing tests fast; the clamping test covers the
// production default.
const testCost = 4

func TestHashPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(testCost)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(testCost)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails without error", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid hash format returns error", func(t *testing.T) {
		ok, err := hasher.Verify("password", "not-a-valid-hash")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestNeedsRehash(t *testing.T) {
	weak := auth.NewBcryptHasher(testCost)
	strong := auth.NewBcryptHasher(auth.DefaultBcryptCost)

	t.Run("lower cost hash needs rehash", func(t *testing.T) {
		hash, err := weak.Hash("password")
		require.NoError(t, err)
		assert.True(t, strong.NeedsRehash(hash))
	})

	t.Run("current cost hash does not need rehash", func(t *testing.T) {
		hash, err := weak.Hash("password")
		require.NoError(t, err)
		assert.False(t, weak.NeedsRehash(hash))
	})

	t.Run("unparseable hash needs rehash", func(t *testing.T) {
		assert.True(t, weak.NeedsRehash("garbage"))
	})
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	// Out-of-range costs fall back to the default; a round-trip still works.
	hasher := auth.NewBcryptHasher(99)
	hash, err := hasher.Hash("password")
	require.NoError(t, err)
	assert.False(t, hasher.NeedsRehash(hash))
}
