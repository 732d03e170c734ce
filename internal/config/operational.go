package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Operational holds the process-level knobs that are overridden by
// environment variables rather than the persisted JSON document,
// following the retrieved config package's New()/getEnv* shape:
// listen/log settings an operator wants to change per-deployment
// without editing the checked-in configuration file.
type Operational struct {
	ConfigPath         string
	ListenAddr         string
	LogLevel           string
	LogFormat          string
	LogFile            string
	MaxOpenConnections int64
	RequestTimeout     time.Duration
}

// LoadOperational loads an optional .env file (as cmd/proxy/server.go
// does) and then applies environment-variable overrides on top of
// defaults, validating nothing — the JSON document is the source of
// truth for anything it defines; these are purely operational escape
// hatches.
func LoadOperational() (*Operational, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	return &Operational{
		ConfigPath:         EnvOrDefault("HTTPD_CONFIG_PATH", "./config/httpd.json"),
		ListenAddr:         EnvOrDefault("HTTPD_LISTEN_ADDR", ":8080"),
		LogLevel:           EnvOrDefault("HTTPD_LOG_LEVEL", "info"),
		LogFormat:          EnvOrDefault("HTTPD_LOG_FORMAT", "json"),
		LogFile:            EnvOrDefault("HTTPD_LOG_FILE", ""),
		MaxOpenConnections: int64(EnvIntOrDefault("HTTPD_MAX_OPEN_CONNECTIONS", 10000)),
		RequestTimeout:     time.Duration(EnvIntOrDefault("HTTPD_REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond,
	}, nil
}
