// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the sweeper purges expired rows.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired sessions and reset tokens. It runs
// on its own timer, independent of request traffic; a validation racing a
// sweep converges to the same outcome either way (session gone).
type Sweeper struct {
	sessions SessionRepository
	resets   PasswordResetRepository
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SweeperOption customizes a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the purge interval.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = interval }
}

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithSweeperClock sets the time source, for deterministic tests.
func WithSweeperClock(clock func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.clock = clock }
}

// NewSweeper creates a Sweeper over the session and reset repositories.
func NewSweeper(sessions SessionRepository, resets PasswordResetRepository, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		sessions: sessions,
		resets:   resets,
		interval: DefaultSweepInterval,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce executes a single sweep cycle. Both purges are attempted even if
// the first fails; errors are combined.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.clock()
	var errs []error

	swept, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("expired session purge failed", "error", err)
		errs = append(errs, err)
	} else if swept > 0 {
		recordSessionsSwept(swept)
		s.logger.Info("purged expired sessions", "count", swept)
	}

	stale, err := s.resets.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("stale reset token purge failed", "error", err)
		errs = append(errs, err)
	} else if stale > 0 {
		recordResetTokensSwept(stale)
		s.logger.Info("purged stale reset tokens", "count", stale)
	}

	return errors.Join(errs...)
}

// Start begins periodic sweeping. The first cycle runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the sweeper and waits for the current cycle to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("sweep cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("sweep cycle failed", "error", err)
			}
		}
	}
}
