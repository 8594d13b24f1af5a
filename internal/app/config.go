package app

import (
	"github.com/driftwatch/anomaly-backend/internal/platform/envutil"
)

type Config struct {
	LogMode      string
	Environment  string
	StoreDriver  string
	RedisAddr    string
	RedisChannel string
}

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

func LoadConfig() Config {
	return Config{
		LogMode:      envutil.Str("LOG_MODE", "dev"),
		Environment:  envutil.Str("ENVIRONMENT", "dev"),
		StoreDriver:  envutil.Str("DOCSTORE_DRIVER", StorePostgres),
		RedisAddr:    envutil.Str("REDIS_ADDR", ""),
		RedisChannel: envutil.Str("REDIS_REFRESH_CHANNEL", "index-refresh"),
	}
}
