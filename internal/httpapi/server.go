// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

// Package httpapi exposes the authentication subsystem over HTTP: login,
// logout, current-user and the password-reset flow, plus the middleware
// other handlers use to gate routes by session and role.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server owns the echo instance serving the public API.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// NewServer builds the API server and mounts the auth routes under /api.
func NewServer(addr string, handler *AuthHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				logger.Error("request", attrs...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	handler.Register(e.Group("/api"))

	return &Server{echo: e, addr: addr, logger: logger}
}

// Echo exposes the router so the host application can mount further
// route groups, typically behind Authenticate and RequireRole.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
