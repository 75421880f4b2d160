// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// resetRequestedMessage is returned for every password-reset request,
// whether or not the email matched an account.
const resetRequestedMessage = "if the address is registered, a reset token has been sent"

// AuthService is the slice of auth.Service the handlers need.
type AuthService interface {
	SessionValidator
	Login(ctx context.Context, username, password string) (*auth.Session, string, error)
	Revoke(ctx context.Context, token string) error
}

// PasswordResetter is the slice of auth.ResetService the handlers need.
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	ConsumeReset(ctx context.Context, token, newPassword string) error
}

// AuthHandler serves the login, logout, current-user and password-reset
// endpoints.
type AuthHandler struct {
	auth   AuthService
	resets PasswordResetter
	logger *slog.Logger
}

func NewAuthHandler(authSvc AuthService, resets PasswordResetter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: authSvc, resets: resets, logger: logger}
}

// Register mounts the handler's routes on g. Routes under the gate take
// the Authenticate middleware; login and the reset flow are public.
func (h *AuthHandler) Register(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/password/forgot", h.ForgotPassword)
	g.POST("/password/reset", h.ResetPassword)
	g.GET("/me", h.Me, Authenticate(h.auth))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      auth.Principal `json:"user"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	session, token, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		case errors.Is(err, auth.ErrAccountInactive):
			return echo.NewHTTPError(http.StatusForbidden, "account is inactive")
		default:
			h.logger.Error("login failed", slog.String("error", err.Error()))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "login unavailable")
		}
	}

	c.SetCookie(sessionCookie(token, session.ExpiresAt))
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      session.Principal(),
	})
}

// Logout revokes the presented session. It is idempotent: a missing or
// already-revoked token still yields 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := TokenFromRequest(c); token != "" {
		if err := h.auth.Revoke(c.Request().Context(), token); err != nil {
			h.logger.Warn("session revoke failed", slog.String("error", err.Error()))
		}
	}
	c.SetCookie(expiredSessionCookie())
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, principal)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	if err := h.resets.RequestReset(c.Request().Context(), req.Email); err != nil {
		h.logger.Error("reset request failed", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "reset unavailable")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": resetRequestedMessage})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	err := h.resets.ConsumeReset(c.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmptyPassword):
			return echo.NewHTTPError(http.StatusBadRequest, "new password is required")
		case errors.Is(err, auth.ErrResetTokenInvalid):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid reset token")
		case errors.Is(err, auth.ErrResetTokenUsed):
			return echo.NewHTTPError(http.StatusConflict, "reset token already used")
		case errors.Is(err, auth.ErrResetTokenExpired):
			return echo.NewHTTPError(http.StatusGone, "reset token expired")
		default:
			h.logger.Error("reset consume failed", slog.String("error", err.Error()))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "reset unavailable")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
