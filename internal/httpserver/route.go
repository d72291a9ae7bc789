package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/middleware/csrf"
	middleware "github.com/Skotchmaster/supermarket/pkg/middleware/auth"
)

type Deps struct {
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Auth     *AuthHTTP
	Catalog  *CatalogHTTP
	Social   *SocialHTTP
	Orders   *OrderHTTP
	Admin    *AdminHTTP

	Renderer      echo.Renderer
	DB            *gorm.DB
	JWTSecret     []byte
	Refresher     middleware.Refresher
	SecureCookies bool

	// LoginRatePerMin caps login attempts per client IP; 0 disables the limit.
	LoginRatePerMin int
}

func Register(e *echo.Echo, d *Deps) {
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = errorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher, d.SecureCookies)

	site := e.Group("", csrf.Middleware(csrf.Config{
		Secure:  d.SecureCookies,
		Skipper: wantsJSON,
	}))
	public := site.Group("", authMW.OptionalAuth)
	user := site.Group("", authMW.RequireAuth)
	admin := site.Group("/admin", authMW.RequireAdmin)

	public.GET("/", func(c echo.Context) error { return redirect(c, "/shopping") })
	public.GET("/shopping", d.Catalog.GetProducts)
	public.GET("/products", d.Catalog.GetProducts)
	public.GET("/products/:id", d.Catalog.GetProduct)
	public.GET("/products/:id/reviews", d.Social.GetReviews)
	public.GET("/search", d.Catalog.SearchProducts)

	public.GET("/login", d.Auth.LoginForm)
	public.POST("/login", d.Auth.Login, loginLimiter(d.LoginRatePerMin))
	public.GET("/register", d.Auth.RegisterForm)
	public.POST("/register", d.Auth.Register)
	public.POST("/logout", d.Auth.Logout)

	user.GET("/cart", d.Cart.GetCart)
	user.POST("/cart/add/:id", d.Cart.AddToCart)
	user.POST("/add-to-cart/:id", d.Cart.AddToCart)
	user.POST("/cart/update/:id", d.Cart.UpdateCart)
	user.GET("/cart/remove/:id", d.Cart.RemoveFromCart)
	user.POST("/cart/remove/:id", d.Cart.RemoveFromCart)
	user.POST("/cart/clear", d.Cart.ClearCart)
	user.POST("/cart/checkout", d.Checkout.CommitCart)
	user.GET("/purchase", d.Checkout.PurchaseForm)
	user.POST("/purchase", d.Checkout.Purchase)

	e.GET("/api/cart/checkout", d.Checkout.CheckoutMethodNotAllowed)
	e.POST("/api/cart/checkout", d.Checkout.CommitCart, authMW.RequireAuth)

	user.GET("/orders", d.Orders.GetOrders)
	user.GET("/orders/:id/invoice", d.Orders.GetInvoice)
	user.GET("/favorites", d.Social.GetFavorites)
	user.POST("/favorites/:id/toggle", d.Social.ToggleFavorite)
	user.POST("/products/:id/reviews", d.Social.SaveReview)

	admin.GET("", d.Admin.Dashboard)
	admin.POST("/undo-last-checkout", d.Checkout.UndoLastCheckout)
	admin.GET("/users", d.Admin.Users)
	admin.POST("/users/:id/role", d.Admin.UpdateUserRole)
	admin.POST("/users/:id/delete", d.Admin.DeleteUser)
	admin.GET("/users/:id/orders", d.Admin.UserOrders)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.GET("/products/:id/edit", d.Admin.EditProductForm)
	admin.POST("/products/:id/edit", d.Admin.UpdateProduct)
	admin.POST("/products/:id/delete", d.Admin.DeleteProduct)
	admin.POST("/products/:id/featured", d.Admin.SetFeatured)
	admin.POST("/products/:id/restock", d.Admin.Restock)
}

func (d *Deps) ready(c echo.Context) error {
	if d.DB == nil {
		return c.NoContent(http.StatusOK)
	}
	sqlDB, err := d.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}

func loginLimiter(perMin int) echo.MiddlewareFunc {
	if perMin <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMin) / 60),
		Burst:     perMin,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		},
	})
}
