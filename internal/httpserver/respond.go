package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/middleware/csrf"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

const (
	flashCookie   = "flash"
	flashKey      = "flash"
	genericFailed = "Something went wrong. Please try again."
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

// shopperFrom rebuilds the shopper the auth middleware put on the context.
func shopperFrom(c echo.Context) (domain.Shopper, bool) {
	s, _ := c.Get("user_id").(string)
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return domain.Shopper{}, false
	}
	role, _ := c.Get("role").(string)
	sid, _ := c.Get("session_id").(string)
	return domain.Shopper{UserID: uint(id), SessionID: sid, Role: role}, true
}

// wantsJSON reports whether the caller is a script rather than a browser page.
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return true
	}
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	return req.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Invalid("Invalid id.")
	}
	return uint(id), nil
}

// safeReturn accepts only local paths so a form cannot bounce the shopper offsite.
func safeReturn(to, fallback string) string {
	if strings.HasPrefix(to, "/") && !strings.HasPrefix(to, "//") && !strings.Contains(to, "\\") {
		return to
	}
	return fallback
}

func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// messageOf is the text a shopper sees for err. Storage failures never leak.
func messageOf(err error) string {
	var (
		he *echo.HTTPError
		se *domain.StockError
		ve *domain.ValidationError
		pe *domain.ProductError
	)
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			return m
		}
		return http.StatusText(he.Code)
	case errors.As(err, &se):
		return fmt.Sprintf("Not enough stock. Available: %d", se.Available)
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, domain.ErrEmptyCart):
		return "Cart is empty"
	case errors.Is(err, domain.ErrCartAlreadyEmpty):
		return "Your cart is already empty."
	case errors.Is(err, domain.ErrNotInCart):
		return "Item not found in cart."
	case errors.Is(err, domain.ErrNoCheckoutHistory):
		return "No checkout history available"
	case errors.Is(err, service.ErrAdminProtected):
		return "The admin account cannot be changed."
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, domain.ErrConflict):
		return "Username or email is already registered."
	case errors.As(err, &pe) && errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("Product not found: %d", pe.ProductID)
	case errors.Is(err, domain.ErrNotFound):
		return "Not found."
	case errors.Is(err, domain.ErrForbidden):
		return "Forbidden."
	default:
		return genericFailed
	}
}

// logFailure logs at warn for caller mistakes and at error for our own.
func logFailure(c echo.Context, handler, event string, err error) {
	l := logging.FromContext(c.Request().Context()).With("handler", handler)
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
		return
	}
	l.Warn(event, "status", status, "error", err)
}

// jsonFail writes {success:false, error}. A stock refusal also carries the
// available count as remaining.
func jsonFail(c echo.Context, err error) error {
	body := echo.Map{"success": false, "error": messageOf(err)}
	var se *domain.StockError
	if errors.As(err, &se) {
		body["remaining"] = se.Available
	}
	return c.JSON(statusOf(err), body)
}

// Flash holds one-shot notices carried across a redirect in a cookie.
type Flash struct {
	Success []string `json:"success,omitempty"`
	Error   []string `json:"error,omitempty"`
}

func (f Flash) Empty() bool { return len(f.Success) == 0 && len(f.Error) == 0 }

func pendingFlash(c echo.Context) *Flash {
	if f, ok := c.Get(flashKey).(*Flash); ok {
		return f
	}
	f := &Flash{}
	if ck, err := c.Cookie(flashCookie); err == nil && ck.Value != "" {
		if raw, err := base64.RawURLEncoding.DecodeString(ck.Value); err == nil {
			_ = json.Unmarshal(raw, f)
		}
	}
	c.Set(flashKey, f)
	return f
}

func writeFlash(c echo.Context, f *Flash) {
	ck := &http.Cookie{Name: flashCookie, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	if f.Empty() {
		ck.MaxAge = -1
	} else {
		raw, _ := json.Marshal(f)
		ck.Value = base64.RawURLEncoding.EncodeToString(raw)
	}
	c.SetCookie(ck)
}

func flashSuccess(c echo.Context, msg string) {
	f := pendingFlash(c)
	f.Success = append(f.Success, msg)
	writeFlash(c, f)
}

func flashError(c echo.Context, msg string) {
	f := pendingFlash(c)
	f.Error = append(f.Error, msg)
	writeFlash(c, f)
}

// takeFlash consumes the pending notices.
func takeFlash(c echo.Context) Flash {
	f := pendingFlash(c)
	out := *f
	if _, err := c.Cookie(flashCookie); err == nil || !f.Empty() {
		*f = Flash{}
		writeFlash(c, f)
	}
	return out
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}

// failBack flashes err and sends the browser to dest.
func failBack(c echo.Context, dest string, err error) error {
	flashError(c, messageOf(err))
	return redirect(c, dest)
}

// View is what every page template receives.
type View struct {
	Title string
	User  *domain.Shopper
	Flash Flash
	CSRF  string
	Data  any
}

func render(c echo.Context, code int, name, title string, data any) error {
	v := View{Title: title, Flash: takeFlash(c), CSRF: csrf.Token(c), Data: data}
	if sh, ok := shopperFrom(c); ok {
		v.User = &sh
	}
	return c.Render(code, name, v)
}

func loginURL(c echo.Context) string {
	req := c.Request()
	if req.Method != http.MethodGet {
		return "/login"
	}
	return "/login?returnTo=" + url.QueryEscape(req.URL.RequestURI())
}

// errorHandler answers JSON callers with {success:false,error} and browsers
// with an error page, sending anonymous browsers to the login form.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusOf(err), messageOf(err)

	var rerr error
	switch {
	case c.Request().Method == http.MethodHead:
		rerr = c.NoContent(code)
	case wantsJSON(c):
		rerr = c.JSON(code, echo.Map{"success": false, "error": msg})
	case code == http.StatusUnauthorized:
		rerr = redirect(c, loginURL(c))
	default:
		rerr = render(c, code, "error.html", http.StatusText(code), echo.Map{"Code": code, "Message": msg})
	}
	if rerr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "status", code, "error", rerr)
	}
}
