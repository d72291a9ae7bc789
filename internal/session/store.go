package session

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// ErrMiss means no cart mirror is stored under the key; callers fall back to
// the persisted cart.
var ErrMiss = errors.New("session cart miss")

const DefaultTTL = 7 * 24 * time.Hour

// Store keeps the cached copy of a user's cart, shared by the user's sessions.
type Store interface {
	Load(ctx context.Context, sid string) ([]models.CartItem, error)
	Save(ctx context.Context, sid string, items []models.CartItem) error
	Delete(ctx context.Context, sid string) error
}
