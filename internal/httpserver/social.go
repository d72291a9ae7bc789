package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/transport"
)

type SocialHTTP struct {
	Social *service.SocialService
}

func (h *SocialHTTP) GetFavorites(c echo.Context) error {
	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	items, err := h.Social.Favorites(c.Request().Context(), sh.UserID)
	if err != nil {
		logFailure(c, "get.favorites", "get_favorites_error", err)
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, items)
	}
	return render(c, http.StatusOK, "favorites.html", "Favorites", items)
}

func (h *SocialHTTP) ToggleFavorite(c echo.Context) error {
	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	dest := safeReturn(c.FormValue("returnTo"), "/favorites")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	on, err := h.Social.ToggleFavorite(c.Request().Context(), sh.UserID, id)
	if err != nil {
		logFailure(c, "toggle.favorite", "toggle_favorite_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, dest, err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "favorite": on})
	}
	if on {
		flashSuccess(c, "Added to favorites.")
	} else {
		flashSuccess(c, "Removed from favorites.")
	}
	return redirect(c, dest)
}

func (h *SocialHTTP) GetReviews(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if !wantsJSON(c) {
		return redirect(c, fmt.Sprintf("/products/%d#reviews", id))
	}
	res, err := h.Social.Reviews(c.Request().Context(), id)
	if err != nil {
		logFailure(c, "get.reviews", "get_reviews_error", err)
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *SocialHTTP) SaveReview(c echo.Context) error {
	sh, ok := shopperFrom(c)
	if !ok {
		return errUnauthorized
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	dest := fmt.Sprintf("/products/%d", id)

	var req transport.ReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	rating, err := transport.IntOr(req.Rating, 0)
	if err != nil {
		err = domain.Invalid("Rating must be between 1 and 5.")
	} else {
		_, err = h.Social.SaveReview(c.Request().Context(), sh.UserID, id, service.ReviewInput{
			Rating:  rating,
			Title:   req.Title,
			Comment: req.Comment,
		})
	}
	if err != nil {
		logFailure(c, "save.review", "save_review_error", err)
		if wantsJSON(c) {
			return jsonFail(c, err)
		}
		return failBack(c, dest, err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
	flashSuccess(c, "Thanks for your review.")
	return redirect(c, dest)
}
