package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/session"
	"github.com/Skotchmaster/supermarket/internal/testutil"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

const testCSRF = "test-csrf-token"

var (
	testAccessSecret  = []byte("access-secret")
	testRefreshSecret = []byte("refresh-secret")
)

type testEnv struct {
	DB   *gorm.DB
	Echo *echo.Echo
}

func newTestEnv(t *testing.T, loginRate int) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	r := repo.New(db)
	events := mykafka.NopPublisher{}
	store := service.NewCartStore(r, session.NewMemoryStore(time.Hour))

	cart := &service.CartService{Repo: r, Store: store, Events: events}
	checkout := &service.CheckoutService{Repo: r, Carts: store, Events: events, DeliveryFee: decimal.RequireFromString("5.00")}
	catalog := &service.CatalogService{Repo: r, Events: events}
	social := &service.SocialService{Repo: r}
	auth := &service.AuthService{
		Repo:          r,
		Carts:         store,
		Events:        events,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}

	renderer, err := NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	Register(e, &Deps{
		Cart:            &CartHTTP{Cart: cart},
		Checkout:        &CheckoutHTTP{Checkout: checkout, Cart: cart},
		Auth:            &AuthHTTP{Auth: auth},
		Catalog:         &CatalogHTTP{Catalog: catalog, Social: social},
		Social:          &SocialHTTP{Social: social},
		Orders:          &OrderHTTP{Orders: &service.OrderService{Repo: r, TaxRate: decimal.RequireFromString("0.08")}},
		Admin:           &AdminHTTP{Admin: &service.AdminService{Repo: r, Carts: store}, Catalog: catalog},
		Renderer:        renderer,
		DB:              db,
		JWTSecret:       testAccessSecret,
		Refresher:       auth,
		LoginRatePerMin: loginRate,
	})
	return &testEnv{DB: db, Echo: e}
}

// cookieFor signs an access token for u the way login would.
func cookieFor(t *testing.T, u *models.User) *http.Cookie {
	t.Helper()
	tok, err := tokens.NewAccessToken(testAccessSecret, strconv.FormatUint(uint64(u.ID), 10), u.Role,
		"sid-"+u.Username, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return &http.Cookie{Name: tokens.AccessCookie, Value: tok}
}

func (env *testEnv) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}
	rec := httptest.NewRecorder()
	env.Echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return env.serve(req, cookies...)
}

// doForm posts a browser form carrying a valid CSRF token.
func (env *testEnv) doForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return env.serve(req, append(cookies, &http.Cookie{Name: "XSRF-TOKEN", Value: testCSRF})...)
}

func (env *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return env.serve(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

// flashFrom returns the flash cookie set on rec, if any.
func flashFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	var last *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == flashCookie {
			last = ck
		}
	}
	return last
}
