package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
	"github.com/Skotchmaster/supermarket/internal/util"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

type CatalogHTTP struct {
	Catalog *service.CatalogService
	Social  *service.SocialService
}

type shoppingPage struct {
	*service.Listing
	Query     service.ListQuery
	Favorites map[uint]bool
}

type productPage struct {
	Product  *models.Product
	Reviews  *service.ProductReviews
	Favorite bool
}

type searchPage struct {
	Query   string
	Results *util.Page[models.Product]
}

// favorites is best-effort decoration; listing pages render without it.
func (h *CatalogHTTP) favorites(c echo.Context) map[uint]bool {
	sh, ok := shopperFrom(c)
	if !ok || h.Social == nil {
		return nil
	}
	ids, err := h.Social.FavoriteIDs(c.Request().Context(), sh.UserID)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("favorites_lookup_failed", "handler", "catalog", "error", err)
		return nil
	}
	return ids
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	q := service.ListQuery{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Featured: transport.Truthy(c.QueryParam("featured")),
		Trending: transport.Truthy(c.QueryParam("trending")),
		Page:     util.ParseIntDefault(c.QueryParam("page"), 1),
		Size:     util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	}

	listing, err := h.Catalog.List(ctx, q)
	if err != nil {
		logFailure(c, "get.products", "get_products_error", err)
		return err
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, listing)
	}
	return render(c, http.StatusOK, "shopping.html", "Shop", shoppingPage{Listing: listing, Query: q, Favorites: h.favorites(c)})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.Get(ctx, id)
	if err != nil {
		logFailure(c, "get.product", "get_product_error", err)
		return err
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, p)
	}

	page := productPage{Product: p}
	if page.Reviews, err = h.Social.Reviews(ctx, id); err != nil {
		logFailure(c, "get.product", "get_reviews_error", err)
		return err
	}
	page.Favorite = h.favorites(c)[id]
	return render(c, http.StatusOK, "product.html", p.Name, page)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")
	if query == "" {
		query = c.QueryParam("search")
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Catalog.Search(ctx, query, page, size)
	if err != nil {
		logFailure(c, "search.products", "search_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, "/shopping", err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, res)
	}
	return render(c, http.StatusOK, "search.html", "Search", searchPage{Query: query, Results: res})
}
