// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

// Package store provides database bootstrap and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection bootstrap limits. The database may come up slightly after the
// application under orchestration, so the initial ping retries briefly.
const (
	connectAttempts  = 5
	connectBaseDelay = 500 * time.Millisecond
)

// Connect opens a pgx pool for the given URL and verifies connectivity
// with a bounded fibonacci backoff.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectAttempts, retry.NewFibonacci(connectBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", connectAttempts).
			Wrap(err)
	}

	return pool, nil
}
