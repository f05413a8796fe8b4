// Package config loads runtime configuration for the fintrack CLI client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A dotenv file (-env, or ./.env) and FINTRACK_* environment variables.
//  3. An optional JSON file selected with -c or -config.
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-g string   host:port of the gRPC health endpoint
//	-i int      online status check interval (seconds)
//	-t int      remote request timeout (seconds)
//	-f string   path of the local SQLite database
//	-l string   log level
package config

import "time"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL           string
	HealthAddr          string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	ReconnectDebounce   time.Duration
	DBPath              string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.ReconnectDebounce = 500 * time.Millisecond
	c.DBPath = "fintrack.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays the
// environment, JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
