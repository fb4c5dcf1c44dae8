package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
upstream:
  base_url: http://localhost:8080
jwt:
  secret: s3cret
`))
		require.NoError(t, err)

		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, 20*time.Second, cfg.Polling.NotifyInterval)
		assert.Equal(t, 15*time.Second, cfg.Polling.ConversationsInterval)
		assert.Equal(t, 5*time.Second, cfg.Polling.MessagesInterval)
		assert.Equal(t, 50.0, cfg.Discover.MaxDistanceKm)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg, err := Parse([]byte(`
server:
  host: 0.0.0.0
  port: 9000
upstream:
  base_url: http://api:8080
  timeout: 3s
polling:
  notify_interval: 15s
  messages_interval: 2s
discover:
  max_distance_km: 25
jwt:
  secret: s3cret
  ttl: 1h
`))
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, 15*time.Second, cfg.Polling.NotifyInterval)
		assert.Equal(t, 2*time.Second, cfg.Polling.MessagesInterval)
		assert.Equal(t, 25.0, cfg.Discover.MaxDistanceKm)
		assert.Equal(t, time.Hour, cfg.JWT.TTL)
	})

	t.Run("requires upstream", func(t *testing.T) {
		_, err := Parse([]byte("jwt:\n  secret: x\n"))
		assert.ErrorContains(t, err, "upstream.base_url")
	})

	t.Run("requires jwt secret", func(t *testing.T) {
		_, err := Parse([]byte("upstream:\n  base_url: http://x\n"))
		assert.ErrorContains(t, err, "jwt.secret")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("server: [1, 2"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream:\n  base_url: http://x\njwt:\n  secret: y\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://x", cfg.Upstream.BaseURL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "skillswap", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=skillswap sslmode=disable", db.DSN())
}
