package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/session"
	"github.com/Skotchmaster/supermarket/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []mykafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, ev mykafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType)
	}
	return out
}

// flakySessions fails writes while failSave is set.
type flakySessions struct {
	*session.MemoryStore
	mu       sync.Mutex
	failSave bool
}

func (f *flakySessions) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = v
}

func (f *flakySessions) Save(ctx context.Context, sid string, items []models.CartItem) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("session backend unavailable")
	}
	return f.MemoryStore.Save(ctx, sid, items)
}

// writeFaults fails creates and deletes on one table while set.
type writeFaults struct {
	mu    sync.Mutex
	table string
}

func (f *writeFaults) set(table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = table
}

func (f *writeFaults) check(tx *gorm.DB) {
	f.mu.Lock()
	table := f.table
	f.mu.Unlock()
	if table != "" && tx.Statement.Table == table {
		_ = tx.AddError(errors.New("write to " + table + " refused"))
	}
}

func (f *writeFaults) install(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Callback().Create().Before("gorm:create").Register("test:write_faults", f.check); err != nil {
		t.Fatalf("register create fault: %v", err)
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("test:write_faults", f.check); err != nil {
		t.Fatalf("register delete fault: %v", err)
	}
}

type testEnv struct {
	db       *gorm.DB
	faults   *writeFaults
	repo     *repo.GormRepo
	sessions *flakySessions
	events   *recordingPublisher
	store    *CartStore
	cart     *CartService
	checkout *CheckoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	faults := &writeFaults{}
	faults.install(t, db)
	r := repo.New(db)
	sessions := &flakySessions{MemoryStore: session.NewMemoryStore(time.Hour)}
	events := &recordingPublisher{}
	store := NewCartStore(r, sessions)

	return &testEnv{
		db:       db,
		faults:   faults,
		repo:     r,
		sessions: sessions,
		events:   events,
		store:    store,
		cart:     &CartService{Repo: r, Store: store, Events: events},
		checkout: &CheckoutService{
			Repo:        r,
			Carts:       store,
			Events:      events,
			DeliveryFee: decimal.RequireFromString("5.00"),
		},
	}
}

func (e *testEnv) shopper(t *testing.T, name string) domain.Shopper {
	t.Helper()
	u := testutil.SeedUser(t, e.db, name, domain.RoleUser)
	return domain.Shopper{UserID: u.ID, SessionID: "sid-" + name, Role: u.Role}
}

func (e *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.Order{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func (e *testEnv) persistedLines(t *testing.T, userID uint) []models.CartItem {
	t.Helper()
	items, err := e.repo.ListCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	return items
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
