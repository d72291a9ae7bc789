package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "products", cfg.ES.Index)
	assert.Equal(t, "5", cfg.DeliveryFee.String())
	assert.Equal(t, "0.08", cfg.TaxRate.String())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")

	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
}
