package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/codesearch/storage/sqlbuilder"
)

type Adapter struct {
	DSN    string
	Schema string // used as dedicated schema via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) IndexID() string { return "postgres:" + a.Schema }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

func (a *Adapter) ContentAggregate() string {
	return "string_agg(file_chunks.content, '' ORDER BY file_chunks.chunk_order)"
}

func (a *Adapter) ILike(expr, placeholder string) string {
	return expr + " ILIKE " + placeholder
}

func (a *Adapter) RegexMatch(expr, placeholder string) string {
	return expr + " ~* " + placeholder
}

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes; safe to wrap
	return `"` + ident + `"`
}

func (a *Adapter) validSchema() error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	return nil
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if err := a.validSchema(); err != nil {
		return nil, err
	}

	// The schema must exist before it can be pinned in search_path.
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	_, err = db0.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	_ = db0.Close()
	if err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) CreateIndex(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}

	sqlt := a.SQL()
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaMagicKey, storage.MetaMagic); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaVersionKey, storage.MetaVersion)
	return err
}

func (a *Adapter) OpenIndex(ctx context.Context, db *sql.DB) error {
	var magic string
	if err := db.QueryRowContext(ctx, a.SQL().GetMeta, storage.MetaMagicKey).Scan(&magic); err != nil {
		return err
	}
	if magic != storage.MetaMagic {
		return fmt.Errorf("not a codesearch database (schema %s)", a.Schema)
	}
	return nil
}

func (a *Adapter) Optimize(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "ANALYZE")
	return err
}
