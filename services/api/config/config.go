package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort           = 8080
	defaultLimit          = 200
	defaultChunkSize      = 100
	defaultUploadMaxBytes = 50 << 20
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL        string
	Port               int
	BearerToken        string
	DefaultLimit       int
	StandardsFile      string
	LogLevel           string
	LogFormat          string
	IngestWorkers      int
	IngestChunkSize    int
	UploadMaxBytes     int64
	RequireCoordinates bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:               defaultPort,
		DefaultLimit:       defaultLimit,
		LogLevel:           "info",
		LogFormat:          "json",
		IngestWorkers:      runtime.NumCPU(),
		IngestChunkSize:    defaultChunkSize,
		UploadMaxBytes:     defaultUploadMaxBytes,
		RequireCoordinates: true,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	cfg.StandardsFile = strings.TrimSpace(os.Getenv("STANDARDS_FILE"))

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	if v := strings.TrimSpace(os.Getenv("INGEST_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.IngestWorkers = n
		} else {
			return cfg, fmt.Errorf("invalid INGEST_WORKERS: %s", v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("INGEST_CHUNK_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			cfg.IngestChunkSize = n
		} else {
			return cfg, fmt.Errorf("invalid INGEST_CHUNK_SIZE: %s", v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("UPLOAD_MAX_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.UploadMaxBytes = n
		} else {
			return cfg, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %s", v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("REQUIRE_COORDINATES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUIRE_COORDINATES: %w", err)
		}
		cfg.RequireCoordinates = b
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
