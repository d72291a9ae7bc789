package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
	"github.com/Skotchmaster/supermarket/pkg/logging"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

type AuthHTTP struct {
	Auth          *service.AuthService
	SecureCookies bool
}

type loginPage struct {
	ReturnTo string
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	return render(c, http.StatusOK, "login.html", "Log in", loginPage{ReturnTo: safeReturn(c.QueryParam("returnTo"), "")})
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return render(c, http.StatusOK, "register.html", "Register", nil)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Auth.Register(ctx, req.Input())
	if err != nil {
		logFailure(c, "register", "register_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, "/register", err)
	}

	l.Info("user_registered", "user_id", u.ID)
	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": u})
	}
	flashSuccess(c, "Registration successful. Please log in.")
	return redirect(c, "/login")
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	returnTo := c.FormValue("returnTo")
	if returnTo == "" {
		returnTo = c.QueryParam("returnTo")
	}

	res, err := h.Auth.Login(ctx, req.Login(), req.Password)
	if err != nil {
		logFailure(c, "login", "login_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, "/login", err)
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, h.SecureCookies))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.SecureCookies))

	l.Info("user_logged_in", "user_id", res.User.ID)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "user": res.User, "cartCount": res.CartCount})
	}

	home := "/shopping"
	if res.User.Role == domain.RoleAdmin {
		home = "/admin"
	}
	flashSuccess(c, fmt.Sprintf("Welcome back, %s.", res.User.Username))
	return redirect(c, safeReturn(returnTo, home))
}

// Logout works with or without a valid access token so a stale session can
// always be cleared.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "logout")

	sh, _ := shopperFrom(c)
	refresh := ""
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		refresh = ck.Value
	}

	if err := h.Auth.Logout(ctx, sh, refresh); err != nil {
		l.Error("logout_error", "status", 500, "error", err)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.SecureCookies))

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
	flashSuccess(c, "You have been logged out.")
	return redirect(c, "/login")
}
