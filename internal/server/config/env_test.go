package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("environment variables", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", writeEnvFile(t, "")}
		t.Setenv("FINTRACK_HTTP_ADDR", ":8181")
		t.Setenv("FINTRACK_GRPC_ADDR", ":50052")
		t.Setenv("DATABASE_URL", "postgres://db")
		t.Setenv("FINTRACK_TOKEN_TTL", "2h")
		t.Setenv("FINTRACK_ALLOWED_ORIGINS", "http://a.test,http://b.test")
		t.Setenv("FINTRACK_ADMIN_EMAIL", "ops@example.com")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":8181", cfg.EndpointAddrHTTP)
		assert.Equal(t, ":50052", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
		assert.Equal(t, "ops@example.com", cfg.AdminEmail)
		assert.Equal(t, "secretKey", cfg.SecretKey)
	})

	t.Run("dotenv file", func(t *testing.T) {
		path := writeEnvFile(t, "S3_BUCKET=from-file\nFINTRACK_LOG_LEVEL=debug\n")
		os.Args = []string{"testbin", "-env", path}
		t.Cleanup(func() {
			_ = os.Unsetenv("S3_BUCKET")
			_ = os.Unsetenv("FINTRACK_LOG_LEVEL")
		})

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "from-file", cfg.S3Bucket)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("invalid duration panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", writeEnvFile(t, "")}
		t.Setenv("FINTRACK_TOKEN_TTL", "forever")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("missing explicit file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "nope.env")}
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
