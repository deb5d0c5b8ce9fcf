// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Backend names.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Default values.
const (
	DefaultBackend        = BackendSupabase
	DefaultGeminiModel    = "gemini-3-flash-preview"
	DefaultTable          = "todos"
	DefaultTimeoutSeconds = 10
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds the full configuration for smarttodo.
type Config struct {
	// Store backend: "supabase" (REST) or "postgres" (direct connection).
	Backend string `toml:"backend"`

	// Supabase REST credentials.
	SupabaseURL string `toml:"supabase_url"`
	SupabaseKey string `toml:"supabase_key"`

	// Direct Postgres connection string (postgres backend only).
	DatabaseURL string `toml:"database_url"`

	// Backing table name.
	Table string `toml:"table"`

	// Gemini credentials and model.
	GeminiAPIKey string `toml:"gemini_api_key"`
	GeminiModel  string `toml:"gemini_model"`

	// Per-call store timeout.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// Logging configuration.
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.smarttodo/smarttodo.toml or OS config dir)
// 3. Project config file (smarttodo.toml or .smarttodo.toml in cwd)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if userFile := findUserConfigFile(); userFile != "" {
		if err := loadConfigFile(cfg, userFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userFile, err)
		}
	}
	if projFile := findProjectConfigFile(); projFile != "" {
		if err := loadConfigFile(cfg, projFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projFile, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	normalize(cfg)
	return cfg, nil
}

// Validate checks that the config is usable for the selected backend.
// The AI key is optional; without it priority suggestions and breakdowns
// are disabled.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("supabase_url is required (or set SUPABASE_URL)")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("supabase_key is required (or set SUPABASE_ANON_KEY)")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required (or set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendSupabase, BackendPostgres)
	}
	return nil
}

// HasAI returns true if an AI API key is configured.
func (c *Config) HasAI() bool {
	return c.GeminiAPIKey != ""
}

func setDefaults(cfg *Config) {
	cfg.Backend = DefaultBackend
	cfg.Table = DefaultTable
	cfg.GeminiModel = DefaultGeminiModel
	cfg.RequestTimeoutSeconds = DefaultTimeoutSeconds
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

func normalize(cfg *Config) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.SupabaseKey = strings.TrimSpace(cfg.SupabaseKey)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = DefaultGeminiModel
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// findUserConfigFile returns the user-level config path, or "" if none exists.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(home, ".smarttodo", "smarttodo.toml"),
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(configDir, "smarttodo", "smarttodo.toml"))
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "linux" {
		candidates = append(candidates, filepath.Join(home, ".config", "smarttodo", "smarttodo.toml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findProjectConfigFile returns the project-level config path, or "".
func findProjectConfigFile() string {
	for _, name := range []string{"smarttodo.toml", ".smarttodo.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadFromEnv overrides config from environment variables. The collaborator
// credentials also honor their conventional unprefixed names.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SMARTTODO_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.SupabaseURL = v
	}
	if v := os.Getenv("SMARTTODO_SUPABASE_URL"); v != "" {
		cfg.SupabaseURL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.SupabaseKey = v
	}
	if v := os.Getenv("SMARTTODO_SUPABASE_KEY"); v != "" {
		cfg.SupabaseKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("SMARTTODO_GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("SMARTTODO_TABLE"); v != "" {
		cfg.Table = v
	}
	if v := os.Getenv("SMARTTODO_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("SMARTTODO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SMARTTODO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// parseFlags registers config flags on fs and parses args into cfg.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "store backend: supabase or postgres")
	fs.StringVar(&cfg.SupabaseURL, "supabase-url", cfg.SupabaseURL, "Supabase project URL")
	fs.StringVar(&cfg.SupabaseKey, "supabase-key", cfg.SupabaseKey, "Supabase anon key")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	fs.StringVar(&cfg.GeminiAPIKey, "gemini-key", cfg.GeminiAPIKey, "Gemini API key")
	fs.StringVar(&cfg.GeminiModel, "gemini-model", cfg.GeminiModel, "Gemini model name")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "backing table name")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, logfmt, json")
	return fs.Parse(args)
}
