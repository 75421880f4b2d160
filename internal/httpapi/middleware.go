// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// SessionCookieName is the cookie carrying the session token for browser
// clients. API clients use the Authorization header instead.
const SessionCookieName = "stackdesk_session"

// principalKey is the echo context key holding the resolved Principal.
const principalKey = "principal"

// SessionValidator resolves a bearer token to a Principal. Implemented by
// auth.Service.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (auth.Principal, error)
}

// TokenFromRequest extracts the session token from the Authorization
// header (preferred) or the session cookie. Returns "" when neither is
// present.
func TokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
		return token
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// Authenticate is the authorization gate: it turns a bearer token into a
// Principal or rejects the request. On 401 the client is expected to drop
// its token and re-login; the same token must not be retried. A backing
// store failure is 503, never a silent pass-through.
func Authenticate(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			principal, err := sessions.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrNotFound) || errors.Is(err, auth.ErrSessionExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication unavailable")
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// RequireRole enforces that the authenticated principal holds one of the
// given roles. It must run after Authenticate. Role checks are the
// caller's responsibility; the gate itself only answers "who is this".
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !allowed[principal.Role] {
				return echo.NewHTTPError(http.StatusForbidden, "permission denied")
			}
			return next(c)
		}
	}
}

// PrincipalFromContext returns the Principal stored by Authenticate.
func PrincipalFromContext(c echo.Context) (auth.Principal, bool) {
	principal, ok := c.Get(principalKey).(auth.Principal)
	return principal, ok
}
