package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/internal/models"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	sid := uuid.NewString()

	_, err := s.Load(ctx, sid)
	require.ErrorIs(t, err, ErrMiss)

	items := []models.CartItem{{UserID: 1, ProductID: 2, Name: "Milk", Quantity: 3, Price: decimal.RequireFromString("2.50")}}
	require.NoError(t, s.Save(ctx, sid, items))

	got, err := s.Load(ctx, sid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Quantity)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("2.5")))

	require.NoError(t, s.Save(ctx, sid, nil))
	got, err = s.Load(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Delete(ctx, sid))
	_, err = s.Load(ctx, sid)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(time.Minute)
	ctx := context.Background()
	items := []models.CartItem{{ProductID: 1, Quantity: 1}}
	require.NoError(t, s.Save(ctx, "a", items))
	items[0].Quantity = 9

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Quantity)
}

func TestMemoryStore_Expires(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Save(context.Background(), "a", []models.CartItem{{ProductID: 1, Quantity: 1}}))

	now = now.Add(2 * time.Minute)
	_, err := s.Load(context.Background(), "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	client, err := RedisConfig{URL: url, ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 3}.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Minute))
}
