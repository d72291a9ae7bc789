package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

// CartService reserves stock as units enter the cart and releases it as they
// leave. Every stock change goes through the conditional AdjustStock and is
// computed from the persisted lines read under the user's lock; the cart is
// only written once the stock change has been applied.
type CartService struct {
	Repo   *repo.GormRepo
	Store  *CartStore
	Events mykafka.Publisher
}

type CartView struct {
	Items    []models.CartItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

type LineResult struct {
	Line      models.CartItem `json:"line"`
	CartCount int             `json:"cart_count"`
	Remaining int             `json:"remaining"`
}

func newCartView(items []models.CartItem) *CartView {
	v := &CartView{Items: items, Subtotal: decimal.Zero}
	for _, it := range items {
		v.Count += it.Quantity
		v.Subtotal = v.Subtotal.Add(it.Subtotal())
	}
	return v
}

func (s *CartService) Get(ctx context.Context, sh domain.Shopper) (*CartView, error) {
	items, err := s.Store.Get(ctx, sh)
	if err != nil {
		return nil, err
	}
	return newCartView(items), nil
}

// Add reserves qty units of the product and adds them to the shopper's line.
// A new line snapshots the current discount-or-base price; an existing line
// keeps the price it was created with.
func (s *CartService) Add(ctx context.Context, sh domain.Shopper, productID uint, qty int) (*LineResult, error) {
	if qty < 1 {
		return nil, domain.Invalid("Quantity must be at least 1.")
	}

	unlock := s.Store.Lock(sh.UserID)
	defer unlock()

	p, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ProductNotFound(productID)
		}
		return nil, domain.Persistence("load product", err)
	}

	items, err := s.Store.Lines(ctx, sh)
	if err != nil {
		return nil, err
	}

	remaining, err := s.Repo.AdjustStock(ctx, productID, -qty)
	if err != nil {
		return nil, withName(err, p.Name)
	}

	line, ok := findLine(items, productID)
	if !ok {
		line = models.CartItem{
			UserID:        sh.UserID,
			ProductID:     p.ID,
			Name:          p.Name,
			Image:         p.Image,
			Price:         p.EffectivePrice(),
			OriginalPrice: p.Price,
			Discounted:    p.OnSale(),
		}
	}
	line.Quantity += qty

	next, err := s.Store.Upsert(ctx, sh, items, line)
	if err != nil {
		s.restock(ctx, productID, qty)
		return nil, err
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCart, mykafka.EventCartItemAdded, userKey(sh),
		mykafka.CartItemPayload{UserID: sh.UserID, ProductID: productID, Quantity: line.Quantity, Remaining: remaining})

	return &LineResult{Line: line, CartCount: itemCount(next), Remaining: remaining}, nil
}

// UpdateQuantity sets the line to newQty, reserving or releasing the
// difference. On any failure the line and the stock are left as they were.
func (s *CartService) UpdateQuantity(ctx context.Context, sh domain.Shopper, productID uint, newQty int) (*LineResult, error) {
	if newQty < 1 {
		return nil, domain.Invalid("Quantity must be at least 1.")
	}

	unlock := s.Store.Lock(sh.UserID)
	defer unlock()

	items, err := s.Store.Lines(ctx, sh)
	if err != nil {
		return nil, err
	}
	line, ok := findLine(items, productID)
	if !ok {
		return nil, &domain.ProductError{ProductID: productID, Err: domain.ErrNotInCart}
	}

	delta := newQty - line.Quantity
	remaining, err := s.Repo.AdjustStock(ctx, productID, -delta)
	if err != nil {
		return nil, withName(err, line.Name)
	}

	line.Quantity = newQty
	next, err := s.Store.Upsert(ctx, sh, items, line)
	if err != nil {
		s.restock(ctx, productID, delta)
		return nil, err
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCart, mykafka.EventCartItemUpdated, userKey(sh),
		mykafka.CartItemPayload{UserID: sh.UserID, ProductID: productID, Quantity: newQty, Remaining: remaining})

	return &LineResult{Line: line, CartCount: itemCount(next), Remaining: remaining}, nil
}

// Remove releases the line's units and deletes the line. A product that no
// longer exists has nothing to release; the line is still removed.
func (s *CartService) Remove(ctx context.Context, sh domain.Shopper, productID uint) (*CartView, error) {
	unlock := s.Store.Lock(sh.UserID)
	defer unlock()

	items, err := s.Store.Lines(ctx, sh)
	if err != nil {
		return nil, err
	}
	line, ok := findLine(items, productID)
	if !ok {
		return nil, &domain.ProductError{ProductID: productID, Err: domain.ErrNotInCart}
	}

	released, err := s.release(ctx, line)
	if err != nil {
		return nil, err
	}

	next, err := s.Store.Remove(ctx, sh, items, productID)
	if err != nil {
		if released {
			s.reserveAgain(ctx, line)
		}
		return nil, err
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCart, mykafka.EventCartItemRemoved, userKey(sh),
		mykafka.CartItemPayload{UserID: sh.UserID, ProductID: productID, Quantity: line.Quantity})

	return newCartView(next), nil
}

// Clear releases and removes lines one at a time, in cart order. The first
// line that cannot be released stops the operation; it and every later line
// stay in the cart.
func (s *CartService) Clear(ctx context.Context, sh domain.Shopper) (int, error) {
	unlock := s.Store.Lock(sh.UserID)
	defer unlock()

	items, err := s.Store.Lines(ctx, sh)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, domain.ErrCartAlreadyEmpty
	}

	cleared := 0
	left := items
	for _, line := range items {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}

		released, err := s.release(ctx, line)
		if err != nil {
			return cleared, &domain.ProductError{ProductID: line.ProductID, Name: line.Name, Err: err}
		}
		next, err := s.Store.Remove(ctx, sh, left, line.ProductID)
		if err != nil {
			if released {
				s.reserveAgain(ctx, line)
			}
			return cleared, &domain.ProductError{ProductID: line.ProductID, Name: line.Name, Err: err}
		}
		left = next
		cleared++
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCart, mykafka.EventCartCleared, userKey(sh),
		mykafka.CartClearedPayload{UserID: sh.UserID, Lines: cleared})

	return cleared, nil
}

// release returns the line's units to stock. It reports false without error
// when the product has been deleted.
func (s *CartService) release(ctx context.Context, line models.CartItem) (bool, error) {
	if _, err := s.Repo.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(ctx).Info("release_skipped_missing_product", "svc", "cart", "product_id", line.ProductID)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// restock undoes a reservation whose cart write failed.
func (s *CartService) restock(ctx context.Context, productID uint, qty int) {
	if qty == 0 {
		return
	}
	if _, err := s.Repo.AdjustStock(context.WithoutCancel(ctx), productID, qty); err != nil {
		logging.FromContext(ctx).Error("compensation_failed",
			"svc", "cart", "product_id", productID, "delta", qty, "error", err)
	}
}

func (s *CartService) reserveAgain(ctx context.Context, line models.CartItem) {
	if _, err := s.Repo.AdjustStock(context.WithoutCancel(ctx), line.ProductID, -line.Quantity); err != nil {
		logging.FromContext(ctx).Error("compensation_failed",
			"svc", "cart", "product_id", line.ProductID, "delta", -line.Quantity, "error", err)
	}
}

func withName(err error, name string) error {
	var se *domain.StockError
	if errors.As(err, &se) {
		return &domain.ProductError{ProductID: se.ProductID, Name: name, Err: err}
	}
	return err
}

func userKey(sh domain.Shopper) string {
	return userKeyID(sh.UserID)
}

func userKeyID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
