// Package config loads the codesearch TOML configuration. Values come from
// Default, then the file, then CODESEARCH_* environment variables. Command
// line flags are applied by the caller on top.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-co-op/gocron/v2"
)

// Duration is a time.Duration written as a string such as "2s" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Search      SearchConfig      `toml:"search"`
	Server      ServerConfig      `toml:"server"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Index       IndexConfig       `toml:"index"`
	Log         LogConfig         `toml:"log"`
}

type StorageConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend        string `toml:"backend"`
	SQLitePath     string `toml:"sqlite_path"`
	SQLiteDriver   string `toml:"sqlite_driver"`
	PostgresDSN    string `toml:"postgres_dsn"`
	PostgresSchema string `toml:"postgres_schema"`
}

type SearchConfig struct {
	MaxResults   int      `toml:"max_results"`
	Workers      int      `toml:"workers"`
	RegexTimeout Duration `toml:"regex_timeout"`
}

type ServerConfig struct {
	Listen         string   `toml:"listen"`
	UserHeader     string   `toml:"user_header"`
	RequestTimeout Duration `toml:"request_timeout"`
	ReadTimeout    Duration `toml:"read_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`
	// RateLimit is searches per second per user; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

type MaintenanceConfig struct {
	Enabled           bool     `toml:"enabled"`
	OrphanCleanupCron string   `toml:"orphan_cleanup_cron"`
	OrphanGrace       Duration `toml:"orphan_grace"`
	OptimizeCron      string   `toml:"optimize_cron"`
}

type IndexConfig struct {
	Exclude      []string `toml:"exclude"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:        "sqlite",
			SQLitePath:     "codesearch.db",
			SQLiteDriver:   "sqlite",
			PostgresSchema: "public",
		},
		Search: SearchConfig{
			MaxResults:   50,
			Workers:      4,
			RegexTimeout: Duration{2 * time.Second},
		},
		Server: ServerConfig{
			Listen:         ":8080",
			UserHeader:     "X-User-ID",
			RequestTimeout: Duration{30 * time.Second},
			ReadTimeout:    Duration{10 * time.Second},
			WriteTimeout:   Duration{60 * time.Second},
			RateLimit:      5,
			RateBurst:      10,
		},
		Maintenance: MaintenanceConfig{
			Enabled:           true,
			OrphanCleanupCron: "0 3 * * *",
			OrphanGrace:       Duration{24 * time.Hour},
			OptimizeCron:      "30 3 * * 0",
		},
		Index: IndexConfig{
			Exclude:      []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"},
			MaxFileBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides values from CODESEARCH_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CODESEARCH_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CODESEARCH_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("CODESEARCH_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CODESEARCH_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("CODESEARCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CODESEARCH_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CODESEARCH_MAX_RESULTS: %w", err)
		}
		c.Search.MaxResults = n
	}
	return nil
}

// validateCron accepts an empty expression or a 5-field cron line.
func validateCron(expr string) error {
	if expr == "" {
		return nil
	}
	if err := gocron.NewDefaultCron(false).IsValid(expr, time.UTC, time.Now()); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			add("storage.sqlite_path", "required for the sqlite backend")
		}
		if d := c.Storage.SQLiteDriver; d != "sqlite" && d != "sqlite3" {
			add("storage.sqlite_driver", "invalid driver %q, must be sqlite or sqlite3", d)
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			add("storage.postgres_dsn", "required for the postgres backend")
		}
	default:
		add("storage.backend", "invalid backend %q, must be sqlite or postgres", c.Storage.Backend)
	}

	if c.Search.MaxResults < 0 {
		add("search.max_results", "must not be negative")
	}
	if c.Search.Workers < 1 {
		add("search.workers", "must be at least 1")
	}
	if c.Search.RegexTimeout.Duration < 0 {
		add("search.regex_timeout", "must not be negative")
	}

	if c.Server.UserHeader == "" {
		add("server.user_header", "must not be empty")
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate_limit is set")
	}

	if c.Maintenance.Enabled {
		if c.Maintenance.OrphanCleanupCron == "" && c.Maintenance.OptimizeCron == "" {
			add("maintenance", "enabled without any cron expression")
		}
		if c.Maintenance.OrphanGrace.Duration < 0 {
			add("maintenance.orphan_grace", "must not be negative")
		}
		for field, expr := range map[string]string{
			"maintenance.orphan_cleanup_cron": c.Maintenance.OrphanCleanupCron,
			"maintenance.optimize_cron":       c.Maintenance.OptimizeCron,
		} {
			if err := validateCron(expr); err != nil {
				add(field, "%v", err)
			}
		}
	}

	if c.Index.MaxFileBytes <= 0 {
		add("index.max_file_bytes", "must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", "invalid format %q, must be text or json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
