package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("environment variables", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", writeEnvFile(t, "")}
		t.Setenv("FINTRACK_SERVER_URL", "https://api.example")
		t.Setenv("FINTRACK_HEALTH_ADDR", "api.example:50051")
		t.Setenv("FINTRACK_REQUEST_TIMEOUT", "4s")
		t.Setenv("FINTRACK_RECONNECT_DEBOUNCE", "1s")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "https://api.example", cfg.ServerURL)
		assert.Equal(t, "api.example:50051", cfg.HealthAddr)
		assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
		assert.Equal(t, time.Second, cfg.ReconnectDebounce)
		assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("dotenv file", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", writeEnvFile(t, "FINTRACK_DB_PATH=/tmp/x.db\n")}
		t.Cleanup(func() { _ = os.Unsetenv("FINTRACK_DB_PATH") })

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	})

	t.Run("invalid duration panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", writeEnvFile(t, "")}
		t.Setenv("FINTRACK_ONLINE_CHECK_INTERVAL", "often")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("missing explicit file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "absent.env")}
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
