package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
	"github.com/Skotchmaster/supermarket/internal/util"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

type AdminHTTP struct {
	Admin   *service.AdminService
	Catalog *service.CatalogService
}

type dashboardPage struct {
	*service.Dashboard
	Inventory *service.Listing
}

// adminFailed answers a failed admin action, flashing back to dest for browsers.
func adminFailed(c echo.Context, handler, dest string, err error) error {
	logFailure(c, handler, "admin_error", err)
	if wantsJSON(c) {
		return jsonFail(c, err)
	}
	return failBack(c, dest, err)
}

func adminDone(c echo.Context, dest, msg string, body echo.Map) error {
	if wantsJSON(c) {
		if body == nil {
			body = echo.Map{}
		}
		body["success"] = true
		return c.JSON(http.StatusOK, body)
	}
	flashSuccess(c, msg)
	return redirect(c, dest)
}

func (h *AdminHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	d, err := h.Admin.Dashboard(ctx)
	if err != nil {
		logFailure(c, "admin.dashboard", "dashboard_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, d)
	}

	inv, err := h.Catalog.List(ctx, service.ListQuery{
		Search: c.QueryParam("search"),
		Page:   util.ParseIntDefault(c.QueryParam("page"), 1),
		Size:   util.MaxPageSize,
	})
	if err != nil {
		logFailure(c, "admin.dashboard", "inventory_error", err)
		return err
	}
	return render(c, http.StatusOK, "admin_dashboard.html", "Admin", dashboardPage{Dashboard: d, Inventory: inv})
}

func (h *AdminHTTP) Users(c echo.Context) error {
	users, err := h.Admin.Users(c.Request().Context())
	if err != nil {
		logFailure(c, "admin.users", "list_users_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, users)
	}
	return render(c, http.StatusOK, "admin_users.html", "Users", users)
}

func (h *AdminHTTP) UpdateUserRole(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.user_role", "/admin/users", err)
	}
	var req transport.UserAccessRequest
	if err := c.Bind(&req); err != nil {
		return adminFailed(c, "admin.user_role", "/admin/users", echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}

	if err := h.Admin.UpdateAccess(c.Request().Context(), id, req.Role, transport.Truthy(req.FreeDelivery)); err != nil {
		return adminFailed(c, "admin.user_role", "/admin/users", err)
	}
	logging.FromContext(c.Request().Context()).Info("user_access_updated", "handler", "admin.user_role", "user_id", id, "role", req.Role)
	return adminDone(c, "/admin/users", "User updated.", nil)
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.delete_user", "/admin/users", err)
	}
	if sh, ok := shopperFrom(c); ok && sh.UserID == id {
		return adminFailed(c, "admin.delete_user", "/admin/users", domain.Invalid("You cannot delete your own account."))
	}
	if err := h.Admin.DeleteUser(c.Request().Context(), id); err != nil {
		return adminFailed(c, "admin.delete_user", "/admin/users", err)
	}
	return adminDone(c, "/admin/users", "User deleted.", nil)
}

func (h *AdminHTTP) UserOrders(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Admin.UserOrders(c.Request().Context(), id, util.ParseIntDefault(c.QueryParam("page"), 1))
	if err != nil {
		logFailure(c, "admin.user_orders", "user_orders_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, res)
	}
	return render(c, http.StatusOK, "admin_user_orders.html", "Orders of "+res.User.Username, res)
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return adminFailed(c, "admin.create_product", "/admin", echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}
	in, err := req.Input()
	if err != nil {
		return adminFailed(c, "admin.create_product", "/admin", err)
	}

	p, err := h.Catalog.Create(c.Request().Context(), in)
	if err != nil {
		return adminFailed(c, "admin.create_product", "/admin", err)
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": p})
	}
	flashSuccess(c, fmt.Sprintf("%s created.", p.Name))
	return redirect(c, "/admin")
}

func (h *AdminHTTP) EditProductForm(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "admin_product_edit.html", "Edit "+p.Name, p)
}

func (h *AdminHTTP) UpdateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.update_product", "/admin", err)
	}
	dest := fmt.Sprintf("/admin/products/%d/edit", id)

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return adminFailed(c, "admin.update_product", dest, echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}
	in, err := req.Input()
	if err != nil {
		return adminFailed(c, "admin.update_product", dest, err)
	}

	p, err := h.Catalog.Update(c.Request().Context(), id, in)
	if err != nil {
		return adminFailed(c, "admin.update_product", dest, err)
	}
	return adminDone(c, "/admin", fmt.Sprintf("%s updated.", p.Name), echo.Map{"product": p})
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.delete_product", "/admin", err)
	}
	if err := h.Catalog.Delete(c.Request().Context(), id); err != nil {
		return adminFailed(c, "admin.delete_product", "/admin", err)
	}
	return adminDone(c, "/admin", "Product deleted.", nil)
}

func (h *AdminHTTP) SetFeatured(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.featured", "/admin", err)
	}
	var req transport.FeaturedRequest
	if err := c.Bind(&req); err != nil {
		return adminFailed(c, "admin.featured", "/admin", echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}

	featured := transport.Truthy(req.Featured)
	if err := h.Catalog.SetFeatured(c.Request().Context(), id, featured); err != nil {
		return adminFailed(c, "admin.featured", "/admin", err)
	}
	msg := "Product removed from featured."
	if featured {
		msg = "Product featured."
	}
	return adminDone(c, "/admin", msg, echo.Map{"featured": featured})
}

// Restock moves stock through the same conditional adjustment carts use, so
// a negative amount can never take the quantity below zero.
func (h *AdminHTTP) Restock(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return adminFailed(c, "admin.restock", "/admin", err)
	}
	var req transport.RestockRequest
	if err := c.Bind(&req); err != nil {
		return adminFailed(c, "admin.restock", "/admin", echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}
	amount, err := transport.IntOr(req.Amount, 0)
	if err != nil {
		return adminFailed(c, "admin.restock", "/admin", domain.Invalid("Amount must be a whole number."))
	}

	qty, err := h.Catalog.Restock(c.Request().Context(), id, amount)
	if err != nil {
		return adminFailed(c, "admin.restock", "/admin", err)
	}
	return adminDone(c, "/admin", fmt.Sprintf("Stock is now %d.", qty), echo.Map{"quantity": qty})
}
