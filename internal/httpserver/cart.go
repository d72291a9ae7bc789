package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

type CartHTTP struct {
	Cart *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	view, err := h.Cart.Get(ctx, sh)
	if err != nil {
		logFailure(c, "get.cart", "get_cart_error", err)
		return err
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, view)
	}
	return render(c, http.StatusOK, "cart.html", "Your cart", view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	dest := safeReturn(req.ReturnTo, "/shopping")

	productID, err := paramID(c, "id")
	if err != nil {
		return h.addFailed(c, dest, err)
	}
	qty, err := transport.IntOr(req.Quantity, 1)
	if err != nil {
		return h.addFailed(c, dest, domain.Invalid("Quantity must be a whole number."))
	}

	res, err := h.Cart.Add(ctx, sh, productID, qty)
	if err != nil {
		return h.addFailed(c, dest, err)
	}

	l.Info("added_to_cart", "product_id", productID, "qty", qty, "remaining", res.Remaining)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{
			"success":   true,
			"cartCount": res.CartCount,
			"remaining": res.Remaining,
		})
	}

	flashSuccess(c, addedMessage(qty, res.Line.Name))
	return redirect(c, dest)
}

func (h *CartHTTP) addFailed(c echo.Context, dest string, err error) error {
	logFailure(c, "add.cart", "add_to_cart_error", err)
	if wantsJSON(c) {
		return jsonFail(c, err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return failBack(c, dest, err)
}

func addedMessage(qty int, name string) string {
	if qty == 1 {
		return fmt.Sprintf("1 %s added to cart.", name)
	}
	return fmt.Sprintf("%d %s(s) added to cart.", qty, name)
}

func (h *CartHTTP) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	var req transport.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return h.cartFailed(c, "update.cart", echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}
	productID, err := paramID(c, "id")
	if err != nil {
		return h.cartFailed(c, "update.cart", err)
	}
	qty, err := transport.IntOr(req.Quantity, 0)
	if err != nil {
		return h.cartFailed(c, "update.cart", domain.Invalid("Quantity must be a whole number."))
	}

	res, err := h.Cart.UpdateQuantity(ctx, sh, productID, qty)
	if err != nil {
		return h.cartFailed(c, "update.cart", err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{
			"success":   true,
			"cartCount": res.CartCount,
			"remaining": res.Remaining,
			"line":      res.Line,
		})
	}
	flashSuccess(c, fmt.Sprintf("%s quantity updated to %d.", res.Line.Name, qty))
	return redirect(c, "/cart")
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	productID, err := paramID(c, "id")
	if err != nil {
		return h.cartFailed(c, "remove.cart", err)
	}

	view, err := h.Cart.Remove(ctx, sh, productID)
	if err != nil {
		return h.cartFailed(c, "remove.cart", err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "cartCount": view.Count})
	}
	flashSuccess(c, "Item removed from cart.")
	return redirect(c, "/cart")
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	cleared, err := h.Cart.Clear(ctx, sh)
	if err != nil {
		return h.cartFailed(c, "clear.cart", err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "cleared": cleared})
	}
	flashSuccess(c, "Cart cleared.")
	return redirect(c, "/cart")
}

func (h *CartHTTP) cartFailed(c echo.Context, handler string, err error) error {
	logFailure(c, handler, "cart_error", err)
	if wantsJSON(c) {
		return jsonFail(c, err)
	}
	return failBack(c, "/cart", err)
}
