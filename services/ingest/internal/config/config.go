package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultChunkSize      = 100
)

// ErrDatabaseURLRequired is returned when persisting without DATABASE_URL.
var ErrDatabaseURLRequired = errors.New("DATABASE_URL is required to persist samples")

// Config holds runtime configuration for the ingest CLI.
type Config struct {
	DatabaseURL        string
	RequestTimeout     time.Duration
	StandardsFile      string
	Workers            int
	ChunkSize          int
	RequireCoordinates bool
	LogLevel           string
	LogFormat          string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		RequestTimeout:     defaultRequestTimeout,
		Workers:            runtime.NumCPU(),
		ChunkSize:          defaultChunkSize,
		RequireCoordinates: true,
		LogLevel:           "info",
		LogFormat:          "console",
	}

	// Only needed with --persist.
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.StandardsFile = strings.TrimSpace(os.Getenv("STANDARDS_FILE"))

	if v := strings.TrimSpace(os.Getenv("INGEST_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid INGEST_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("INGEST_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid INGEST_WORKERS: %s", v)
		}
		cfg.Workers = n
	}

	if v := strings.TrimSpace(os.Getenv("INGEST_CHUNK_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			return cfg, fmt.Errorf("invalid INGEST_CHUNK_SIZE: %s", v)
		}
		cfg.ChunkSize = n
	}

	if v := strings.TrimSpace(os.Getenv("REQUIRE_COORDINATES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUIRE_COORDINATES: %w", err)
		}
		cfg.RequireCoordinates = b
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg, nil
}
