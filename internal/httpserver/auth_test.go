package httpserver

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

func registerAlice(t *testing.T, env *testEnv) {
	t.Helper()
	rec := env.doJSON(t, http.MethodPost, "/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, 0)
	registerAlice(t, env)

	rec := env.doJSON(t, http.MethodPost, "/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/login", map[string]any{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeMap(t, rec)["success"])

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = ck.Value != ""
	}
	assert.True(t, names[tokens.AccessCookie])
	assert.True(t, names[tokens.RefreshCookie])
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, 0)
	registerAlice(t, env)

	rec := env.doJSON(t, http.MethodPost, "/login", map[string]any{"email": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password.", decodeMap(t, rec)["error"])
}

func TestLogin_FormHonoursReturnTo(t *testing.T) {
	env := newTestEnv(t, 0)
	registerAlice(t, env)

	rec := env.doForm(t, "/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret123"},
		"returnTo": {"/orders"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	registerAlice(t, env)

	body := map[string]any{"email": "alice", "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(t, http.MethodPost, "/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(t, http.MethodPost, "/login", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.doJSON(t, http.MethodPost, "/login", body).Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.doForm(t, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cleared := 0
	for _, ck := range rec.Result().Cookies() {
		if (ck.Name == tokens.AccessCookie || ck.Name == tokens.RefreshCookie) && ck.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestProtectedPageRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.get("/orders?page=2")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?returnTo="+url.QueryEscape("/orders?page=2"), rec.Header().Get("Location"))
}
