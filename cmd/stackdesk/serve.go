// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stackdesk/stackdesk/internal/auth"
	authpg "github.com/stackdesk/stackdesk/internal/auth/postgres"
	"github.com/stackdesk/stackdesk/internal/config"
	"github.com/stackdesk/stackdesk/internal/httpapi"
	"github.com/stackdesk/stackdesk/internal/logging"
	"github.com/stackdesk/stackdesk/internal/observability"
	"github.com/stackdesk/stackdesk/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the StackDesk server",
		Long: `Start the StackDesk server: the HTTP API, the observability endpoints,
and the background sweeper that purges expired sessions and reset tokens.`,
		RunE: runServe,
	}

	// Flags override the config file; names mirror the config keys.
	cmd.Flags().String("http.addr", "", "HTTP API listen address")
	cmd.Flags().String("observability.addr", "", "metrics/health HTTP address")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().Duration("sweep.interval", 0, "interval between cleanup sweeps")

	return cmd
}

// slogResetSender logs reset tokens instead of delivering them. Stands in
// until the SMTP integration lands; dev and staging read the token from
// the log.
type slogResetSender struct {
	logger *slog.Logger
}

func (s *slogResetSender) SendResetToken(_ context.Context, email, token string) error {
	s.logger.Info("password reset requested",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("stackdesk", version, cfg.Log.Format)
	logger := slog.Default()

	slog.Info("starting server",
		"env", cfg.Env,
		"http_addr", cfg.HTTP.Addr,
		"log_format", cfg.Log.Format,
	)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	if err := migrator.Up(); err != nil {
		migrator.Close()
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	if err := migrator.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}

	users := authpg.NewUserRepository(pool)
	sessions := authpg.NewSessionRepository(pool)
	resets := authpg.NewPasswordResetRepository(pool)
	hasher := auth.NewBcryptHasher(cfg.Password.BcryptCost)

	authSvc, err := auth.NewService(users, sessions, hasher,
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	resetSvc, err := auth.NewResetService(users, resets, hasher,
		&slogResetSender{logger: logger},
		auth.WithResetTTL(cfg.Reset.TTL),
		auth.WithResetLogger(logger),
	)
	if err != nil {
		return err
	}

	sweeper := auth.NewSweeper(sessions, resets,
		auth.WithSweepInterval(cfg.Sweep.Interval),
		auth.WithSweeperLogger(logger),
	)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	obsServer := observability.NewServer(cfg.Observability.Addr, func(ctx context.Context) bool {
		return pool.Ping(ctx) == nil
	})
	obsErrChan, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_FAILED").With("addr", cfg.Observability.Addr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	handler := httpapi.NewAuthHandler(authSvc, resetSvc, logger)
	api := httpapi.NewServer(cfg.HTTP.Addr, handler, logger)

	apiErrChan := make(chan error, 1)
	go func() {
		if serveErr := api.Start(); serveErr != nil {
			apiErrChan <- serveErr
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started")
	slog.Info("server ready", "http_addr", cfg.HTTP.Addr, "observability_addr", obsServer.Addr())

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-apiErrChan:
		return oops.Code("API_SERVER_FAILED").Wrap(err)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
	sweeper.Stop()

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed listener takes the whole process down
// gracefully.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
