package session

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/supermarket/internal/models"
)

type memEntry struct {
	items   []models.CartItem
	expires time.Time
}

// MemoryStore is the in-process Store used when no Redis URL is configured.
type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]memEntry
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, m: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sid string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[sid]
	if !ok {
		return nil, ErrMiss
	}
	if s.now().After(e.expires) {
		delete(s.m, sid)
		return nil, ErrMiss
	}
	return cloneItems(e.items), nil
}

func (s *MemoryStore) Save(_ context.Context, sid string, items []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[sid] = memEntry{items: cloneItems(items), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, sid)
	return nil
}

func cloneItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

var _ Store = (*MemoryStore)(nil)
