package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/supermarket/internal/models"
)

const KeyCart = "session:%s:cart"

type RedisConfig struct {
	URL          string `envconfig:"URL"`
	ReadTimeout  int    `envconfig:"READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"WRITE_TIMEOUT" default:"3"`
	DialTimeout  int    `envconfig:"DIAL_TIMEOUT" default:"5"`
}

func (c RedisConfig) New(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(c.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(c.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(c.DialTimeout) * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisStore keeps each session cart as one JSON value whose TTL is renewed
// on every write.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(sid string) string {
	return fmt.Sprintf(KeyCart, sid)
}

func (s *RedisStore) Load(ctx context.Context, sid string) ([]models.CartItem, error) {
	raw, err := s.rdb.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode session cart: %w", err)
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, sid string, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode session cart: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(sid), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
