package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

const minCardDigits = 13

// CheckoutService turns a cart whose stock is already reserved into an order.
// It never touches stock on commit; undo is the only path that gives stock back.
type CheckoutService struct {
	Repo        *repo.GormRepo
	Carts       *CartStore
	Events      mykafka.Publisher
	DeliveryFee decimal.Decimal
}

type CheckoutRequest struct {
	PaymentMethod   string
	DeliveryMethod  string
	DeliveryAddress string
	DeliveryContact string
}

// PaymentForm is the simulated payment submitted on the purchase page.
type PaymentForm struct {
	Method          string
	CardNumber      string
	Expiry          string
	CVV             string
	DeliveryMethod  string
	DeliveryAddress string
	DeliveryContact string
}

type CheckedOutItem struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Purchased int    `json:"purchased"`
	Remaining int    `json:"remaining"`
}

type CheckoutResult struct {
	OrderID     uint             `json:"order_id"`
	Total       decimal.Decimal  `json:"total"`
	DeliveryFee decimal.Decimal  `json:"delivery_fee"`
	Items       []CheckedOutItem `json:"items"`
}

type UndoResult struct {
	OrderID  uint              `json:"order_id"`
	UserID   uint              `json:"user_id"`
	Restored []mykafka.ItemQty `json:"restored"`
	Skipped  []uint            `json:"skipped,omitempty"`
}

// Validate checks the simulated payment and delivery details and turns them
// into a checkout request.
func (f PaymentForm) Validate() (CheckoutRequest, error) {
	method := strings.TrimSpace(f.Method)
	if method == "" {
		return CheckoutRequest{}, domain.Invalid("Select a payment method.")
	}
	if method != models.PaymentPayNow {
		if f.CardNumber == "" || f.Expiry == "" || f.CVV == "" {
			return CheckoutRequest{}, domain.Invalid("Complete all card details.")
		}
		if len(strings.Join(strings.Fields(f.CardNumber), "")) < minCardDigits {
			return CheckoutRequest{}, domain.Invalid("Card number seems too short.")
		}
		method = models.PaymentCard
	}

	delivery := models.DeliveryStandard
	if f.DeliveryMethod == models.DeliveryPickup {
		delivery = models.DeliveryPickup
	}

	addr := strings.TrimSpace(f.DeliveryAddress)
	if addr == "" {
		return CheckoutRequest{}, domain.Invalid("Please provide a delivery address.")
	}

	return CheckoutRequest{
		PaymentMethod:   method,
		DeliveryMethod:  delivery,
		DeliveryAddress: addr,
		DeliveryContact: strings.TrimSpace(f.DeliveryContact),
	}, nil
}

// Purchase validates the payment form and commits the checkout.
func (s *CheckoutService) Purchase(ctx context.Context, sh domain.Shopper, form PaymentForm) (*CheckoutResult, error) {
	req, err := form.Validate()
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, sh, req)
}

// Commit checks every cart product still exists, then writes the order, its
// lines and the undo log entry and empties the persisted cart in one
// transaction. A missing product rejects the whole checkout with the cart
// left as it was.
func (s *CheckoutService) Commit(ctx context.Context, sh domain.Shopper, req CheckoutRequest) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", sh.UserID)

	unlock := s.Carts.Lock(sh.UserID)
	defer unlock()

	items, err := s.Carts.Lines(ctx, sh)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	result := &CheckoutResult{Total: decimal.Zero, DeliveryFee: decimal.Zero}
	order := &models.Order{
		UserID:          sh.UserID,
		PaymentMethod:   orDefault(req.PaymentMethod, models.PaymentNone),
		DeliveryMethod:  orDefault(req.DeliveryMethod, models.DeliveryPickup),
		DeliveryAddress: req.DeliveryAddress,
		DeliveryContact: req.DeliveryContact,
	}
	entry := &models.CheckoutLog{UserID: sh.UserID}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := s.Repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			if repo.IsNotFound(err) {
				return nil, &domain.ProductError{ProductID: it.ProductID, Name: it.Name, Err: domain.ErrNotFound}
			}
			return nil, domain.Persistence("load product", err)
		}

		order.Items = append(order.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
		entry.Items = append(entry.Items, models.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
		result.Items = append(result.Items, CheckedOutItem{
			ID:        it.ProductID,
			Name:      it.Name,
			Purchased: it.Quantity,
			Remaining: p.Quantity,
		})
		result.Total = result.Total.Add(it.Subtotal())
	}
	order.Total = result.Total

	fee, err := s.deliveryFee(ctx, sh.UserID, order.DeliveryMethod)
	if err != nil {
		return nil, err
	}
	order.DeliveryFee = fee
	result.DeliveryFee = fee

	if err := s.Repo.CommitCheckout(ctx, order, entry); err != nil {
		return nil, domain.Persistence("commit checkout", err)
	}
	result.OrderID = order.ID

	s.Carts.forget(ctx, sh)
	l.Info("checkout_committed", "order_id", order.ID, "total", order.Total.StringFixed(2), "lines", len(order.Items))

	placed := mykafka.OrderPlacedPayload{
		OrderID:     order.ID,
		UserID:      sh.UserID,
		Total:       order.Total.StringFixed(2),
		DeliveryFee: fee.StringFixed(2),
	}
	for _, it := range entry.Items {
		placed.Items = append(placed.Items, mykafka.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	mykafka.Emit(ctx, s.Events, mykafka.TopicOrder, mykafka.EventOrderPlaced, userKey(sh), placed)

	return result, nil
}

func (s *CheckoutService) deliveryFee(ctx context.Context, userID uint, method string) (decimal.Decimal, error) {
	if method != models.DeliveryStandard || !s.DeliveryFee.IsPositive() {
		return decimal.Zero, nil
	}
	u, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return decimal.Zero, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return decimal.Zero, domain.Persistence("load user", err)
	}
	if u.FreeDelivery {
		return decimal.Zero, nil
	}
	return s.DeliveryFee, nil
}

// UndoLastCheckout claims the newest undo log entry and puts its quantities
// back into stock. Claiming deletes the entry, so an entry is restocked at
// most once however many undos race. Restocking is best-effort: products
// deleted since the checkout are skipped.
func (s *CheckoutService) UndoLastCheckout(ctx context.Context) (*UndoResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.undo")

	entry, err := s.Repo.ClaimLatestCheckout(ctx)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ErrNoCheckoutHistory
		}
		return nil, domain.Persistence("claim checkout log", err)
	}

	res := &UndoResult{OrderID: entry.OrderID, UserID: entry.UserID}
	restockCtx := context.WithoutCancel(ctx)
	for _, it := range entry.Items {
		if _, err := s.Repo.AdjustStock(restockCtx, it.ProductID, it.Quantity); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				l.Error("restock_failed", "product_id", it.ProductID, "qty", it.Quantity, "error", err)
			}
			res.Skipped = append(res.Skipped, it.ProductID)
			continue
		}
		res.Restored = append(res.Restored, mykafka.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}

	l.Info("checkout_undone", "order_id", entry.OrderID, "restored", len(res.Restored), "skipped", len(res.Skipped))
	mykafka.Emit(ctx, s.Events, mykafka.TopicOrder, mykafka.EventCheckoutUndone, userKeyID(entry.UserID),
		mykafka.CheckoutUndonePayload{OrderID: entry.OrderID, UserID: entry.UserID, Restored: res.Restored, Skipped: res.Skipped})

	return res, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
