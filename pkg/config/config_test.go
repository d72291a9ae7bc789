package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `envconfig:"CFGTEST_NAME" required:"true"`
	Port    int           `envconfig:"CFGTEST_PORT" default:"8080"`
	Timeout time.Duration `envconfig:"CFGTEST_TIMEOUT" default:"2s"`
	Brokers []string      `envconfig:"CFGTEST_BROKERS"`
}

func TestLoad_DotenvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_NAME=shop\nCFGTEST_BROKERS=a:9092,b:9092\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CFGTEST_NAME")
		os.Unsetenv("CFGTEST_BROKERS")
	})

	var cfg testConfig
	require.NoError(t, Load(&cfg, path))

	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("CFGTEST_NAME")

	var cfg testConfig
	err := Load(&cfg, filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CFGTEST_NAME")
}
