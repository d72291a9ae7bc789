package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

type CheckoutHTTP struct {
	Checkout *service.CheckoutService
	Cart     *service.CartService
}

type purchasePage struct {
	Cart        *service.CartView
	DeliveryFee decimal.Decimal
}

func checkoutJSON(res *service.CheckoutResult) echo.Map {
	return echo.Map{
		"success":      true,
		"message":      "Checkout complete",
		"order_id":     res.OrderID,
		"total":        res.Total,
		"delivery_fee": res.DeliveryFee,
		"items":        res.Items,
	}
}

// PurchaseForm shows the payment form for the current cart.
func (h *CheckoutHTTP) PurchaseForm(c echo.Context) error {
	ctx := c.Request().Context()

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	view, err := h.Cart.Get(ctx, sh)
	if err != nil {
		logFailure(c, "purchase.form", "get_cart_error", err)
		return err
	}
	page := purchasePage{Cart: view, DeliveryFee: h.Checkout.DeliveryFee}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, page)
	}
	if len(view.Items) == 0 {
		return failBack(c, "/cart", domain.ErrEmptyCart)
	}
	return render(c, http.StatusOK, "purchase.html", "Checkout", page)
}

// Purchase validates the simulated payment and places the order.
func (h *CheckoutHTTP) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase")

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	var req transport.PaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("purchase_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Checkout.Purchase(ctx, sh, req.Form())
	if err != nil {
		logFailure(c, "purchase", "purchase_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		dest := "/purchase"
		if errors.Is(err, domain.ErrEmptyCart) {
			dest = "/cart"
		}
		return failBack(c, dest, err)
	}

	l.Info("purchase_complete", "order_id", res.OrderID)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, checkoutJSON(res))
	}
	return render(c, http.StatusOK, "success.html", "Order placed", res)
}

// CommitCart checks the cart out without the payment step.
func (h *CheckoutHTTP) CommitCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}

	res, err := h.Checkout.Commit(ctx, sh, service.CheckoutRequest{})
	if err != nil {
		logFailure(c, "checkout", "checkout_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, "/cart", err)
	}

	l.Info("checkout_complete", "order_id", res.OrderID)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, checkoutJSON(res))
	}
	flashSuccess(c, fmt.Sprintf("Checkout complete. Order #%d placed.", res.OrderID))
	return redirect(c, "/shopping")
}

func (h *CheckoutHTTP) CheckoutMethodNotAllowed(c echo.Context) error {
	return c.JSON(http.StatusMethodNotAllowed, echo.Map{"success": false, "error": "Use POST to checkout"})
}

// UndoLastCheckout restocks the most recent checkout in the store.
func (h *CheckoutHTTP) UndoLastCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "undo.checkout")

	res, err := h.Checkout.UndoLastCheckout(ctx)
	if err != nil {
		logFailure(c, "undo.checkout", "undo_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, "/admin", err)
	}

	l.Info("checkout_undone", "order_id", res.OrderID, "restored", len(res.Restored))
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "undo": res})
	}
	msg := fmt.Sprintf("Undid checkout for order #%d. Restored %d product(s).", res.OrderID, len(res.Restored))
	if len(res.Skipped) > 0 {
		msg += fmt.Sprintf(" %d product(s) no longer exist.", len(res.Skipped))
	}
	flashSuccess(c, msg)
	return redirect(c, "/admin")
}
