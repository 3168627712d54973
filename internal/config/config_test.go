package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var locales = []string{"en", "zh-TW"}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "TRANSMUTE_API_KEY", "WORKSPACE_ROOT", "DEFAULT_LEVEL", "DEFAULT_LOCALE",
		"MAX_FILE_BYTES", "TREE_CACHE_SIZE", "WORKER_COUNT", "MAX_QUEUE_SIZE", "JOB_TTL", "SESSION_TTL",
		"INCLUDE_PATTERNS", "EXCLUDE_PATTERNS", "WATCH"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.DefaultLevel != 3 || cfg.DefaultLocale != "zh-TW" {
		t.Errorf("expected level 3 zh-TW, got %d %q", cfg.DefaultLevel, cfg.DefaultLocale)
	}
	if cfg.MaxFileBytes != 1<<20 || cfg.TreeCacheSize != 256 {
		t.Errorf("unexpected limits %d %d", cfg.MaxFileBytes, cfg.TreeCacheSize)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 32 {
		t.Errorf("unexpected pool sizes %d %d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour || cfg.SessionTTL != 30*time.Minute {
		t.Errorf("unexpected ttls %s %s", cfg.JobTTL, cfg.SessionTTL)
	}
	if !cfg.Watch {
		t.Error("expected watch enabled by default")
	}
	if cfg.IncludePatterns != nil || cfg.ExcludePatterns != nil {
		t.Errorf("expected no patterns, got %v %v", cfg.IncludePatterns, cfg.ExcludePatterns)
	}
	if err := cfg.Validate(locales); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_LEVEL", "1")
	t.Setenv("DEFAULT_LOCALE", "en")
	t.Setenv("WORKER_COUNT", "-2")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("JOB_TTL", "not-a-duration")
	t.Setenv("EXCLUDE_PATTERNS", " *.min.js, ,**/generated/** ")
	t.Setenv("WATCH", "false")

	cfg := Load()
	if cfg.Port != "9000" || cfg.DefaultLevel != 1 || cfg.DefaultLocale != "en" {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count reset to 4, got %d", cfg.WorkerCount)
	}
	if cfg.SessionTTL != 5*time.Minute || cfg.JobTTL != time.Hour {
		t.Errorf("unexpected ttls %s %s", cfg.SessionTTL, cfg.JobTTL)
	}
	if got := strings.Join(cfg.ExcludePatterns, "|"); got != "*.min.js|**/generated/**" {
		t.Errorf("unexpected exclude patterns %q", got)
	}
	if cfg.Watch {
		t.Error("expected watch disabled")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	base := Config{DefaultLevel: 2, DefaultLocale: "en"}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"level too low", func(c *Config) { c.DefaultLevel = 0 }, "DEFAULT_LEVEL"},
		{"level too high", func(c *Config) { c.DefaultLevel = 4 }, "DEFAULT_LEVEL"},
		{"unknown locale", func(c *Config) { c.DefaultLocale = "fr" }, "DEFAULT_LOCALE"},
		{"missing root", func(c *Config) { c.WorkspaceRoot = filepath.Join(dir, "nope") }, "WORKSPACE_ROOT"},
		{"root is file", func(c *Config) { c.WorkspaceRoot = file }, "not a directory"},
		{"bad glob", func(c *Config) { c.ExcludePatterns = []string{"[oops"} }, "invalid glob"},
		{"ok with root", func(c *Config) { c.WorkspaceRoot = dir }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate(locales)
			if tt.want == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
