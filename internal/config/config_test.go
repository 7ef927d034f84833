package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func createTempFile(t testing.TB, data []byte) *os.File {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "config-*.yml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() {
		f.Close()
	})

	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}

	return f
}

func TestLoad(t *testing.T) {
	t.Run("non-existent config file", func(t *testing.T) {
		cfg, err := Load("invalid/path/to/config.yml")

		assert.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, cfg)
	})

	t.Run("invalid config file", func(t *testing.T) {
		data := `http_server:
  port: not number
sqlite:
  path: ./test.db`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("success", func(t *testing.T) {
		data := `env: prod
http_server:
  port: 9090
sqlite:
  path: ./test.db
rate_limit:
  requests: 10
  window: 30s
reaper:
  interval: 1m`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		var wantCfg Config
		setDefaults(&wantCfg)

		wantCfg.Env = EnvProd
		wantCfg.HTTPServer.Port = 9090
		wantCfg.SQLite.Path = "./test.db"
		wantCfg.RateLimit.Requests = 10
		wantCfg.RateLimit.Window = 30 * time.Second
		wantCfg.Reaper.Interval = time.Minute

		assert.Equal(t, wantCfg, *cfg)
	})

	t.Run("defaults", func(t *testing.T) {
		f := createTempFile(t, []byte(`env: dev`))
		cfg, err := Load(f.Name())

		assert.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, 7, cfg.ShortCodeLength)
		assert.Equal(t, 8080, cfg.HTTPServer.Port)
		assert.Equal(t, 30, cfg.RateLimit.Requests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 5*time.Minute, cfg.Reaper.Interval)
	})
}
