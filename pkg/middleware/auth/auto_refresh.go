package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/pkg/logging"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

// Refresher rotates a refresh token into a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

type AutoRefreshMiddleware struct {
	JWTSecret     []byte
	Refresher     Refresher
	SecureCookies bool
}

func NewAutoRefreshMiddleware(secret []byte, refresher Refresher, secureCookies bool) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret:     secret,
		Refresher:     refresher,
		SecureCookies: secureCookies,
	}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

// OptionalAuth sets the user context when a valid access token is present
// and lets anonymous requests through untouched.
func (m *AutoRefreshMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ck, err := c.Cookie(tokens.AccessCookie); err == nil && ck.Value != "" {
			if claims, err := tokens.AccessClaimsFromToken(ck.Value, m.JWTSecret); err == nil {
				setUserContext(c, claims)
			}
		}
		return next(c)
	}
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(tokens.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return m.tryRefresh(c, next, validator, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil && claims != nil {
			if validator != nil {
				if validationErr := validator(claims); validationErr != nil {
					return validationErr
				}
			}

			setUserContext(c, claims)
			return next(c)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) {
			m.clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		return m.tryRefresh(c, next, validator, "access token expired")
	}
}

func (m *AutoRefreshMiddleware) tryRefresh(c echo.Context, next echo.HandlerFunc, validator ValidatorFunc, reason string) error {
	l := logging.FromContext(c.Request().Context()).With("middleware", "auth.refresh")

	refreshCookie, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || refreshCookie.Value == "" || m.Refresher == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, reason)
	}

	pair, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		m.clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp, m.SecureCookies))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, m.SecureCookies))

	newClaims, err := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
	if err != nil || newClaims == nil {
		m.clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
	}

	if validator != nil {
		if validationErr := validator(newClaims); validationErr != nil {
			return validationErr
		}
	}

	l.Debug("tokens_refreshed", "user_id", newClaims.Subject)
	setUserContext(c, newClaims)
	return next(c)
}

func (m *AutoRefreshMiddleware) clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", m.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", m.SecureCookies))
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
	c.Set("session_id", claims.SessionID)
}
