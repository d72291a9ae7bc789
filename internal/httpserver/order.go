package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/util"
)

type OrderHTTP struct {
	Orders *service.OrderService
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)

	orders, err := h.Orders.List(c.Request().Context(), sh.UserID, page, util.DefaultPageSize)
	if err != nil {
		logFailure(c, "get.orders", "get_orders_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, orders)
	}
	return render(c, http.StatusOK, "orders.html", "Your orders", orders)
}

func (h *OrderHTTP) GetInvoice(c echo.Context) error {
	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	inv, err := h.Orders.Invoice(c.Request().Context(), sh.UserID, id)
	if err != nil {
		logFailure(c, "get.invoice", "get_invoice_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, inv)
	}
	return render(c, http.StatusOK, "invoice.html", "Invoice", inv)
}
