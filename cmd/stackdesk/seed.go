// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stackdesk/stackdesk/internal/auth"
	"github.com/stackdesk/stackdesk/internal/auth/postgres"
	"github.com/stackdesk/stackdesk/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout  time.Duration
	username string
	email    string
	password string
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with an initial admin account",
		Long: `Creates the initial admin account so the instance can be logged into.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().StringVar(&cfg.username, "username", "admin", "username for the initial admin account")
	cmd.Flags().StringVar(&cfg.email, "email", "admin@stackdesk.local", "email for the initial admin account")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password for the initial admin account (required)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.password == "" {
		return oops.Code("CONFIG_INVALID").Errorf("--password is required")
	}
	if err := auth.ValidateUsername(cfg.username); err != nil {
		return oops.Code("SEED_FAILED").With("username", cfg.username).Wrap(err)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	passwordHash, err := hasher.Hash(cfg.password)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash password").Wrap(err)
	}

	users := postgres.NewUserRepository(pool)
	admin := &auth.User{
		Username:     cfg.username,
		PasswordHash: passwordHash,
		Email:        cfg.email,
		FullName:     "StackDesk Administrator",
		Role:         auth.RoleAdmin,
		Status:       auth.StatusActive,
	}

	// Attempt to create the account; handle duplicate gracefully
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			cmd.Println("Admin account already exists, skipping seed")

			// Verify the existing account still has admin privileges
			existing, getErr := users.GetByUsername(ctx, cfg.username)
			if getErr != nil {
				slog.Warn("Could not verify existing seed account",
					"username", cfg.username,
					"error", getErr)
				return nil
			}
			if existing.Role != auth.RoleAdmin {
				slog.Warn("Seed account role mismatch",
					"username", cfg.username,
					"expected", auth.RoleAdmin,
					"actual", existing.Role)
			}
			if !existing.IsActive() {
				slog.Warn("Seed account is inactive",
					"username", cfg.username)
			}
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create admin account").Wrap(err)
	}

	cmd.Printf("Created admin account %q\n", cfg.username)
	slog.Info("Created admin account", "id", admin.ID, "username", admin.Username)
	return nil
}
