package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiConfig struct {
	Port    int           `env:"HTTP_PORT" envDefault:"8000"`
	Secret  string        `env:"JWT_SECRET" envDefault:"dev"`
	Expiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	Brokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
}

func TestLoadFrom_Defaults(t *testing.T) {
	var cfg apiConfig
	require.NoError(t, LoadFrom(&cfg, nil))
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "dev", cfg.Secret)
	assert.Equal(t, 15*time.Minute, cfg.Expiry)
	assert.Empty(t, cfg.Brokers)
}

func TestLoadFrom_Values(t *testing.T) {
	var cfg apiConfig
	require.NoError(t, LoadFrom(&cfg, []string{
		"HTTP_PORT=9000",
		"JWT_ACCESS_TOKEN_EXPIRY=1h",
		"KAFKA_BROKERS=k1:9092,k2:9092",
		"MALFORMED",
	}))
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Hour, cfg.Expiry)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoadFrom_SecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt")
	require.NoError(t, os.WriteFile(path, []byte("from-file-secret\n"), 0o600))

	var cfg apiConfig
	require.NoError(t, LoadFrom(&cfg, []string{"JWT_SECRET_FILE=" + path}))
	assert.Equal(t, "from-file-secret", cfg.Secret)

	var explicit apiConfig
	require.NoError(t, LoadFrom(&explicit, []string{"JWT_SECRET=inline", "JWT_SECRET_FILE=" + path}))
	assert.Equal(t, "inline", explicit.Secret)
}

func TestLoadFrom_Errors(t *testing.T) {
	var cfg apiConfig
	err := LoadFrom(&cfg, []string{"JWT_SECRET_FILE=/does/not/exist"})
	assert.ErrorContains(t, err, "read JWT_SECRET_FILE")

	err = LoadFrom(&cfg, []string{"HTTP_PORT=eighty"})
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8123")
	var cfg apiConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 8123, cfg.Port)
}
