package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/testutil"
)

func TestAddToCart_JSON(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)

	rec := env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), map[string]any{"quantity": 2}, cookieFor(t, u))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeMap(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["cartCount"])
	assert.EqualValues(t, 3, body["remaining"])
	assert.Equal(t, 3, testutil.Quantity(t, env.DB, p.ID))
}

func TestAddToCart_JSONInsufficientStock(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)

	rec := env.doJSON(t, http.MethodPost, fmt.Sprintf("/add-to-cart/%d", p.ID), map[string]any{"quantity": 6}, cookieFor(t, u))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeMap(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Not enough stock. Available: 5", body["error"])
	assert.EqualValues(t, 5, body["remaining"])
	assert.Equal(t, 5, testutil.Quantity(t, env.DB, p.ID))
}

func TestAddToCart_JSONUnknownProduct(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)

	rec := env.doJSON(t, http.MethodPost, "/cart/add/999", nil, cookieFor(t, u))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found: 999", decodeMap(t, rec)["error"])
}

func TestAddToCart_FormRedirectsWithFlash(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)
	auth := cookieFor(t, u)

	rec := env.doForm(t, fmt.Sprintf("/cart/add/%d", p.ID), url.Values{
		"quantity": {"2"},
		"returnTo": {fmt.Sprintf("/products/%d", p.ID)},
	}, auth)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/products/%d", p.ID), rec.Header().Get("Location"))

	flash := flashFrom(rec)
	require.NotNil(t, flash)

	page := env.get("/cart", auth, flash)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "2 Apples(s) added to cart.")
	assert.Contains(t, page.Body.String(), "$3.00")
}

func TestAddToCart_OffsiteReturnIgnored(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)

	rec := env.doForm(t, fmt.Sprintf("/cart/add/%d", p.ID), url.Values{"returnTo": {"//evil.example/"}}, cookieFor(t, u))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shopping", rec.Header().Get("Location"))
	assert.Equal(t, 4, testutil.Quantity(t, env.DB, p.ID))
}

func TestAddToCart_RequiresLogin(t *testing.T) {
	env := newTestEnv(t, 0)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)

	rec := env.doForm(t, fmt.Sprintf("/cart/add/%d", p.ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 5, testutil.Quantity(t, env.DB, p.ID))
}

func TestFormWithoutCSRFTokenRejected(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), nil)
	rec := env.serve(req, cookieFor(t, u))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 5, testutil.Quantity(t, env.DB, p.ID))
}

func TestUpdateCart_InvalidQuantityFlashesError(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)
	auth := cookieFor(t, u)

	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), nil, auth).Code)

	rec := env.doForm(t, fmt.Sprintf("/cart/update/%d", p.ID), url.Values{"quantity": {"0"}}, auth)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))

	page := env.get("/cart", auth, flashFrom(rec))
	assert.Contains(t, page.Body.String(), "Quantity must be at least 1.")
	assert.Equal(t, 4, testutil.Quantity(t, env.DB, p.ID))
}

func TestUpdateCart_ReservesDelta(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	p := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)
	auth := cookieFor(t, u)

	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), nil, auth).Code)

	rec := env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/update/%d", p.ID), map[string]any{"quantity": 4}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decodeMap(t, rec)["remaining"])

	rec = env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/update/%d", p.ID), map[string]any{"quantity": 7}, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Not enough stock. Available: 1", decodeMap(t, rec)["error"])
	assert.Equal(t, 1, testutil.Quantity(t, env.DB, p.ID))
}

func TestRemoveAndClearCart(t *testing.T) {
	env := newTestEnv(t, 0)
	u := testutil.SeedUser(t, env.DB, "alice", domain.RoleUser)
	a := testutil.SeedProduct(t, env.DB, "Apples", "1.50", 5)
	b := testutil.SeedProduct(t, env.DB, "Bread", "2.00", 3)
	auth := cookieFor(t, u)

	for _, id := range []uint{a.ID, b.ID} {
		require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPost, fmt.Sprintf("/cart/add/%d", id), nil, auth).Code)
	}

	rec := env.get(fmt.Sprintf("/cart/remove/%d", a.ID), auth)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.Equal(t, 5, testutil.Quantity(t, env.DB, a.ID))

	rec = env.get(fmt.Sprintf("/cart/remove/%d", a.ID), auth)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page := env.get("/cart", auth, flashFrom(rec))
	assert.Contains(t, page.Body.String(), "Item not found in cart.")

	rec = env.doForm(t, "/cart/clear", nil, auth)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 3, testutil.Quantity(t, env.DB, b.ID))

	rec = env.doJSON(t, http.MethodPost, "/cart/clear", nil, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Your cart is already empty.", decodeMap(t, rec)["error"])
}
