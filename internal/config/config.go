package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/docnum/internal/xref"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Build state
	BuildTTL time.Duration

	// Numbering
	AppendixMarker      string
	ReferenceStrategy   string
	BookmarkMaxAttempts int

	// Export
	DOCXLiveFields bool

	// PDF
	PDFFallbackPdftotext bool

	// Live preview
	PreviewPingInterval time.Duration
	PreviewWriteTimeout time.Duration
}

// Load reads the environment, after loading an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCNUM_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		BuildTTL: envDuration("BUILD_TTL", 1*time.Hour),

		AppendixMarker:      os.Getenv("APPENDIX_MARKER"),
		ReferenceStrategy:   envOr("REFERENCE_STRATEGY", string(xref.ModeBoth)),
		BookmarkMaxAttempts: envInt("BOOKMARK_MAX_ATTEMPTS", xref.DefaultMaxAttempts),

		DOCXLiveFields: envBool("DOCX_LIVE_FIELDS", true),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		PreviewPingInterval: envDuration("PREVIEW_PING_INTERVAL", 20*time.Second),
		PreviewWriteTimeout: envDuration("PREVIEW_WRITE_TIMEOUT", 10*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.BuildTTL <= 0 {
		cfg.BuildTTL = 1 * time.Hour
	}
	if cfg.BookmarkMaxAttempts <= 0 {
		cfg.BookmarkMaxAttempts = xref.DefaultMaxAttempts
	}
	if cfg.PreviewPingInterval <= 0 {
		cfg.PreviewPingInterval = 20 * time.Second
	}
	if cfg.PreviewWriteTimeout <= 0 {
		cfg.PreviewWriteTimeout = 10 * time.Second
	}

	return cfg
}

// Validate checks the settings the server needs. The CLI only needs the
// numbering settings and calls ValidateNumbering.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCNUM_API_KEY is required")
	}
	return c.ValidateNumbering()
}

func (c Config) ValidateNumbering() error {
	if _, err := xref.ParseMode(c.ReferenceStrategy); err != nil {
		return fmt.Errorf("REFERENCE_STRATEGY: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
