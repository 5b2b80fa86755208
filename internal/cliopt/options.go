package cliopt

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/codesearch/codesearch/internal/config"
	"github.com/codesearch/codesearch/internal/logging"
)

// GlobalOptions are bound to the root command's persistent flags and passed
// to every subcommand. Flags that were set override the config file.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	ConfigPath     string
	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string
	LogLevel       string
	LogFormat      string

	flags *pflag.FlagSet
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	g.flags = fs
	fs.StringVarP(&g.ConfigPath, "config", "c", "", "TOML config file")
	fs.StringVar(&g.Backend, "backend", "sqlite", "backend: sqlite|postgres")
	fs.StringVar(&g.SQLitePath, "db", "codesearch.db", "sqlite database file")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", "sqlite", "sqlite driver: sqlite (pure Go)|sqlite3 (cgo)")
	fs.StringVar(&g.PostgresDSN, "dsn", "", "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", "public", "postgres schema")
	fs.StringVar(&g.LogLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&g.LogFormat, "log-format", "text", "log format: text|json")
}

func (g *GlobalOptions) changed(name string) bool {
	return g.flags != nil && g.flags.Changed(name)
}

// Config loads the config file and applies flags the user set explicitly.
func (g *GlobalOptions) Config() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"backend", &cfg.Storage.Backend, g.Backend},
		{"db", &cfg.Storage.SQLitePath, g.SQLitePath},
		{"sqlite-driver", &cfg.Storage.SQLiteDriver, g.SQLiteDriver},
		{"dsn", &cfg.Storage.PostgresDSN, g.PostgresDSN},
		{"pg-schema", &cfg.Storage.PostgresSchema, g.PostgresSchema},
		{"log-level", &cfg.Log.Level, g.LogLevel},
		{"log-format", &cfg.Log.Format, g.LogFormat},
	}
	for _, o := range overrides {
		if g.changed(o.flag) {
			*o.dst = o.val
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Logger builds the process logger from cfg.
func Logger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, cfg.Log.Format)
}
