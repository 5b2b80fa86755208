package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/codesearch/storage/postgres"
	"github.com/codesearch/codesearch/codesearch/storage/sqlite"
	"github.com/codesearch/codesearch/internal/config"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatPaths  OutputFormat = "paths"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatPretty, FormatPaths, FormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown format %q: want pretty, paths or json", s)
	}
}

func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes header and rows aligned in columns.
func PrintTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range append([][]string{header}, rows...) {
		for i, col := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// NewAdapter picks the storage backend named in cfg.
func NewAdapter(cfg *config.Config) (storage.Adapter, error) {
	switch cfg.Storage.Backend {
	case string(storage.BackendSQLite):
		return sqlite.NewWithDriver(cfg.Storage.SQLitePath, cfg.Storage.SQLiteDriver), nil
	case string(storage.BackendPostgres):
		return postgres.New(cfg.Storage.PostgresDSN, cfg.Storage.PostgresSchema), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Storage.Backend)
	}
}

func EngineOptions(cfg *config.Config, logger *slog.Logger) codesearch.Options {
	opts := codesearch.DefaultOptions()
	opts.MaxResults = cfg.Search.MaxResults
	opts.Workers = cfg.Search.Workers
	opts.RegexTimeout = cfg.Search.RegexTimeout.Duration
	opts.Logger = logger
	return opts
}

// OpenEngine opens the configured index. With create set the tables are
// created first when missing.
func OpenEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, create bool) (*codesearch.Engine, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	if create {
		return codesearch.Create(ctx, adapter, EngineOptions(cfg, logger))
	}
	return codesearch.Open(ctx, adapter, EngineOptions(cfg, logger))
}
