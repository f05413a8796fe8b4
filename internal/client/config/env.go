package config

import (
	"time"

	"github.com/dmitrijs2005/fintrack/internal/flagx"
)

// parseEnv overlays Config with FINTRACK_* environment variables after
// loading the dotenv file. Bad durations panic like the other loaders.
func parseEnv(cfg *Config) {
	if err := flagx.LoadEnv(flagx.EnvFileFlag()); err != nil {
		panic(err)
	}

	flagx.EnvString(&cfg.ServerURL, "FINTRACK_SERVER_URL")
	flagx.EnvString(&cfg.HealthAddr, "FINTRACK_HEALTH_ADDR")
	flagx.EnvString(&cfg.DBPath, "FINTRACK_DB_PATH")
	flagx.EnvString(&cfg.LogLevel, "FINTRACK_LOG_LEVEL")

	for key, dst := range map[string]*time.Duration{
		"FINTRACK_ONLINE_CHECK_INTERVAL": &cfg.OnlineCheckInterval,
		"FINTRACK_REQUEST_TIMEOUT":       &cfg.RequestTimeout,
		"FINTRACK_RECONNECT_DEBOUNCE":    &cfg.ReconnectDebounce,
	} {
		if err := flagx.EnvDuration(dst, key); err != nil {
			panic(err)
		}
	}
}
