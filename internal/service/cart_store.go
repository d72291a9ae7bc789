package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/session"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

// CartStore keeps a user's cart in two places. The cart_items table holds
// the reserved quantities and is what every stock decision reads; the
// session mirror, shared by all of the user's sessions, serves page reads.
// A mirror that cannot be written is deleted so the next read goes back to
// the table.
type CartStore struct {
	Repo     *repo.GormRepo
	Sessions session.Store

	locks userLocks
}

func NewCartStore(r *repo.GormRepo, sessions session.Store) *CartStore {
	return &CartStore{Repo: r, Sessions: sessions}
}

// Lock serializes cart mutations of one user. The returned func releases it.
func (s *CartStore) Lock(userID uint) func() {
	return s.locks.Lock(userID)
}

// Get returns the cart for display, reading the mirror first and falling
// back to the table.
func (s *CartStore) Get(ctx context.Context, sh domain.Shopper) ([]models.CartItem, error) {
	items, err := s.Sessions.Load(ctx, sh.CartKey())
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, session.ErrMiss) {
		logging.FromContext(ctx).Warn("session_load_failed", "svc", "cart_store", "user_id", sh.UserID, "error", err)
	}
	return s.Refresh(ctx, sh)
}

// Refresh rebuilds the mirror from the table. Login calls it so a new
// session starts from the reserved lines.
func (s *CartStore) Refresh(ctx context.Context, sh domain.Shopper) ([]models.CartItem, error) {
	unlock := s.Lock(sh.UserID)
	defer unlock()
	return s.Lines(ctx, sh)
}

// Lines reads the reserved lines from the table and refreshes the mirror
// with them. Callers that change stock hold Lock and use Lines, never Get.
func (s *CartStore) Lines(ctx context.Context, sh domain.Shopper) ([]models.CartItem, error) {
	items, err := s.Repo.ListCart(ctx, sh.UserID)
	if err != nil {
		return nil, domain.Persistence("load cart", err)
	}
	s.mirror(ctx, sh, items)
	return items, nil
}

// Upsert writes line into the table and returns items with the line replaced
// or appended. items must come from Lines under the same lock.
func (s *CartStore) Upsert(ctx context.Context, sh domain.Shopper, items []models.CartItem, line models.CartItem) ([]models.CartItem, error) {
	line.UserID = sh.UserID
	if err := s.Repo.UpsertCartItem(ctx, &line); err != nil {
		return nil, domain.Persistence("save cart line", err)
	}

	next := make([]models.CartItem, 0, len(items)+1)
	replaced := false
	for _, it := range items {
		if it.ProductID == line.ProductID {
			next = append(next, line)
			replaced = true
			continue
		}
		next = append(next, it)
	}
	if !replaced {
		next = append(next, line)
	}

	s.mirror(ctx, sh, next)
	return next, nil
}

// Remove deletes the product's line from the table and returns items without it.
func (s *CartStore) Remove(ctx context.Context, sh domain.Shopper, items []models.CartItem, productID uint) ([]models.CartItem, error) {
	if err := s.Repo.DeleteCartItem(ctx, sh.UserID, productID); err != nil {
		return nil, domain.Persistence("delete cart line", err)
	}

	next := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}

	s.mirror(ctx, sh, next)
	return next, nil
}

// Drop forgets the mirror. The table is untouched.
func (s *CartStore) Drop(ctx context.Context, sh domain.Shopper) error {
	return s.Sessions.Delete(ctx, sh.CartKey())
}

// forget empties the mirror after the table rows are already gone.
func (s *CartStore) forget(ctx context.Context, sh domain.Shopper) {
	s.mirror(ctx, sh, []models.CartItem{})
}

func (s *CartStore) mirror(ctx context.Context, sh domain.Shopper, items []models.CartItem) {
	if items == nil {
		items = []models.CartItem{}
	}
	err := s.Sessions.Save(ctx, sh.CartKey(), items)
	if err == nil {
		return
	}
	l := logging.FromContext(ctx).With("svc", "cart_store", "user_id", sh.UserID)
	l.Warn("session_save_failed", "error", err)
	if err := s.Sessions.Delete(ctx, sh.CartKey()); err != nil {
		l.Error("session_delete_failed", "error", err)
	}
}

func findLine(items []models.CartItem, productID uint) (models.CartItem, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return models.CartItem{}, false
}

func itemCount(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
