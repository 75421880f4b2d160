// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackdesk/stackdesk/internal/auth"
)

func sessionRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"token_hash", "user_id", "username", "role", "created_at", "expires_at", "last_accessed",
	}).AddRow(
		"somehash", int64(1), "jsmith", "engineer", now, now.Add(time.Hour), now,
	)
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	session := &auth.Session{
		TokenHash:    "somehash",
		UserID:       1,
		Username:     "jsmith",
		Role:         auth.RoleEngineer,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
		LastAccessed: now,
	}

	t.Run("inserts session", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("somehash", int64(1), "jsmith", "engineer", now, now.Add(time.Hour), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewSessionRepository(mock)
		require.NoError(t, repo.Create(ctx, session))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("token hash collision maps to conflict", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("somehash", int64(1), "jsmith", "engineer", now, now.Add(time.Hour), now).
			WillReturnError(uniqueViolation())

		repo := NewSessionRepository(mock)
		assert.ErrorIs(t, repo.Create(ctx, session), auth.ErrConflict)
	})
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns session", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs("somehash").
			WillReturnRows(sessionRow(now))

		repo := NewSessionRepository(mock)
		session, err := repo.GetByTokenHash(ctx, "somehash")
		require.NoError(t, err)
		assert.Equal(t, int64(1), session.UserID)
		assert.Equal(t, "jsmith", session.Username)
		assert.Equal(t, auth.RoleEngineer, session.Role)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs("unknownhash").
			WillReturnError(pgx.ErrNoRows)

		repo := NewSessionRepository(mock)
		_, err := repo.GetByTokenHash(ctx, "unknownhash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs("somehash").
			WillReturnError(errors.New("connection refused"))

		repo := NewSessionRepository(mock)
		_, err := repo.GetByTokenHash(ctx, "somehash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Extend(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("moves expiry and access", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET expires_at`).
			WithArgs("somehash", now.Add(time.Hour), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewSessionRepository(mock)
		assert.NoError(t, repo.Extend(ctx, "somehash", now.Add(time.Hour), now))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET expires_at`).
			WithArgs("unknownhash", now.Add(time.Hour), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewSessionRepository(mock)
		assert.ErrorIs(t, repo.Extend(ctx, "unknownhash", now.Add(time.Hour), now), auth.ErrNotFound)
	})
}

func TestSessionRepository_Touch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("records access", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET last_accessed = GREATEST`).
			WithArgs("somehash", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewSessionRepository(mock)
		assert.NoError(t, repo.Touch(ctx, "somehash", now))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET last_accessed = GREATEST`).
			WithArgs("unknownhash", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewSessionRepository(mock)
		assert.ErrorIs(t, repo.Touch(ctx, "unknownhash", now), auth.ErrNotFound)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes matching row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE token_hash`).
			WithArgs("somehash").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := NewSessionRepository(mock)
		assert.NoError(t, repo.Delete(ctx, "somehash"))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE token_hash`).
			WithArgs("unknownhash").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := NewSessionRepository(mock)
		assert.ErrorIs(t, repo.Delete(ctx, "unknownhash"), auth.ErrNotFound)
	})
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("no match is not an error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id`).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := NewSessionRepository(mock)
		assert.NoError(t, repo.DeleteByUser(ctx, 1))
	})
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns deleted count", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		repo := NewSessionRepository(mock)
		count, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("errors pass through", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
			WithArgs(now).
			WillReturnError(errors.New("connection refused"))

		repo := NewSessionRepository(mock)
		_, err := repo.DeleteExpired(ctx, now)
		assert.Error(t, err)
	})
}
