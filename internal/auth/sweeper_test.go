// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stackdesk/stackdesk/internal/auth"
)

func TestSweeperRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}

	seed := func(t *testing.T) (*fakeSessionRepo, *fakeResetRepo) {
		t.Helper()
		sessions := newFakeSessionRepo()
		user := testUser()

		expired, err := auth.NewSession(user, "expiredhash", now.Add(-2*time.Hour), time.Hour)
		require.NoError(t, err)
		require.NoError(t, sessions.Create(ctx, expired))
		live, err := auth.NewSession(user, "livehash", now, time.Hour)
		require.NoError(t, err)
		require.NoError(t, sessions.Create(ctx, live))

		resets := newFakeResetRepo(newFakeUserRepo(user))
		stale, err := auth.NewPasswordReset(user.ID, "stalehash", now.Add(-time.Minute))
		require.NoError(t, err)
		require.NoError(t, resets.Create(ctx, stale))
		fresh, err := auth.NewPasswordReset(user.ID, "freshhash", now.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, resets.Create(ctx, fresh))

		return sessions, resets
	}

	t.Run("purges only expired rows", func(t *testing.T) {
		sessions, resets := seed(t)
		sweeper := auth.NewSweeper(sessions, resets, auth.WithSweeperClock(clock.Now))

		require.NoError(t, sweeper.RunOnce(ctx))

		_, err := sessions.GetByTokenHash(ctx, "expiredhash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = sessions.GetByTokenHash(ctx, "livehash")
		assert.NoError(t, err)

		_, err = resets.GetByTokenHash(ctx, "stalehash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = resets.GetByTokenHash(ctx, "freshhash")
		assert.NoError(t, err)
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		sessions, resets := seed(t)
		sweeper := auth.NewSweeper(sessions, resets, auth.WithSweeperClock(clock.Now))

		require.NoError(t, sweeper.RunOnce(ctx))
		assert.NoError(t, sweeper.RunOnce(ctx))
	})

	t.Run("reset purge still runs when session purge fails", func(t *testing.T) {
		sessions, resets := seed(t)
		sessions.err = errors.New("connection refused")
		sweeper := auth.NewSweeper(sessions, resets, auth.WithSweeperClock(clock.Now))

		assert.Error(t, sweeper.RunOnce(ctx))

		_, err := resets.GetByTokenHash(ctx, "stalehash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("combines errors from both purges", func(t *testing.T) {
		sessions, resets := seed(t)
		sessions.err = errors.New("sessions down")
		resets.err = errors.New("resets down")
		sweeper := auth.NewSweeper(sessions, resets, auth.WithSweeperClock(clock.Now))

		err := sweeper.RunOnce(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, sessions.err)
		assert.ErrorIs(t, err, resets.err)
	})
}

func TestSweeperStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	sessions := newFakeSessionRepo()
	resets := newFakeResetRepo(newFakeUserRepo())
	sweeper := auth.NewSweeper(sessions, resets, auth.WithSweepInterval(time.Hour))

	sweeper.Start(context.Background())
	sweeper.Stop()

	// Stop is idempotent.
	sweeper.Stop()
}
