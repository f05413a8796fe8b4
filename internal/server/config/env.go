package config

import (
	"github.com/dmitrijs2005/fintrack/internal/flagx"
)

// parseEnv overlays Config with FINTRACK_* environment variables. A dotenv
// file (-env flag, or ./.env when present) is loaded first; variables already
// exported by the process take precedence over the file.
//
// Invalid files or durations panic, matching the JSON and flag loaders.
func parseEnv(config *Config) {
	if err := flagx.LoadEnv(flagx.EnvFileFlag()); err != nil {
		panic(err)
	}

	flagx.EnvString(&config.EndpointAddrHTTP, "FINTRACK_HTTP_ADDR")
	flagx.EnvString(&config.EndpointAddrGRPC, "FINTRACK_GRPC_ADDR")
	flagx.EnvString(&config.DatabaseDSN, "DATABASE_URL")
	flagx.EnvString(&config.SecretKey, "JWT_SECRET")
	if err := flagx.EnvDuration(&config.AccessTokenValidityDuration, "FINTRACK_TOKEN_TTL"); err != nil {
		panic(err)
	}
	flagx.EnvString(&config.S3RootUser, "S3_ROOT_USER")
	flagx.EnvString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	flagx.EnvString(&config.S3Bucket, "S3_BUCKET")
	flagx.EnvString(&config.S3Region, "S3_REGION")
	flagx.EnvString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	flagx.EnvString(&config.AdminEmail, "FINTRACK_ADMIN_EMAIL")
	flagx.EnvString(&config.AdminPassword, "FINTRACK_ADMIN_PASSWORD")
	flagx.EnvString(&config.AdminName, "FINTRACK_ADMIN_NAME")
	flagx.EnvStrings(&config.AllowedOrigins, "FINTRACK_ALLOWED_ORIGINS")
	flagx.EnvString(&config.LogLevel, "FINTRACK_LOG_LEVEL")
}
