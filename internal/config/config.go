package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

type Config struct {
	Port string

	// Auth; empty disables it.
	APIKey string

	// Workspace
	WorkspaceRoot   string // empty serves the built-in demo project
	IncludePatterns []string
	ExcludePatterns []string
	MaxFileBytes    int64
	Watch           bool

	// Projection defaults
	DefaultLevel  int
	DefaultLocale string

	// Structural tree cache entries
	TreeCacheSize int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// State lifetimes
	JobTTL     time.Duration
	SessionTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("TRANSMUTE_API_KEY"),

		WorkspaceRoot:   os.Getenv("WORKSPACE_ROOT"),
		IncludePatterns: envList("INCLUDE_PATTERNS"),
		ExcludePatterns: envList("EXCLUDE_PATTERNS"),
		MaxFileBytes:    envInt64("MAX_FILE_BYTES", 1<<20), // 1MiB
		Watch:           envBool("WATCH", true),

		DefaultLevel:  envInt("DEFAULT_LEVEL", 3),
		DefaultLocale: envOr("DEFAULT_LOCALE", "zh-TW"),

		TreeCacheSize: envInt("TREE_CACHE_SIZE", 256),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 32),

		JobTTL:     envDuration("JOB_TTL", 1*time.Hour),
		SessionTTL: envDuration("SESSION_TTL", 30*time.Minute),
	}

	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 1 << 20
	}
	if cfg.TreeCacheSize <= 0 {
		cfg.TreeCacheSize = 256
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 32
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	return cfg
}

// Validate rejects settings the server cannot start with. locales lists the
// label sets known to the block catalog.
func (c Config) Validate(locales []string) error {
	if c.DefaultLevel < 1 || c.DefaultLevel > 3 {
		return fmt.Errorf("DEFAULT_LEVEL must be 1, 2 or 3, got %d", c.DefaultLevel)
	}
	if !slices.Contains(locales, c.DefaultLocale) {
		return fmt.Errorf("DEFAULT_LOCALE %q is not one of %v", c.DefaultLocale, locales)
	}
	if c.WorkspaceRoot != "" {
		info, err := os.Stat(c.WorkspaceRoot)
		if err != nil {
			return fmt.Errorf("WORKSPACE_ROOT: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("WORKSPACE_ROOT %q is not a directory", c.WorkspaceRoot)
		}
	}
	for _, p := range append(slices.Clone(c.IncludePatterns), c.ExcludePatterns...) {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
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

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
