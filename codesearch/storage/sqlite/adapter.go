package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/codesearch/storage/sqlbuilder"
)

const (
	// DriverModernc is the pure-Go driver and the default.
	DriverModernc = "sqlite"
	// DriverMattn selects mattn/go-sqlite3 (cgo).
	DriverMattn = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

// NewWithDriver accepts DriverModernc or DriverMattn.
func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderNumbered
}

func (a *Adapter) IndexID() string {
	return a.Path
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) ContentAggregate() string {
	return "group_concat(file_chunks.content, '' ORDER BY file_chunks.chunk_order)"
}

// ILike relies on SQLite's LIKE, which folds ASCII letters only.
func (a *Adapter) ILike(expr, placeholder string) string {
	return expr + " LIKE " + placeholder + ` ESCAPE '\'`
}

func (a *Adapter) RegexMatch(expr, placeholder string) string {
	return expr + " REGEXP " + placeholder
}

// driverAndDSN maps the configured driver to a registered sql driver name
// and appends per-connection pragmas in that driver's DSN syntax.
func (a *Adapter) driverAndDSN() (string, string, error) {
	sep := "?"
	if strings.Contains(a.Path, "?") {
		sep = "&"
	}
	switch a.DriverName {
	case "", DriverModernc:
		return DriverModernc, a.Path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case DriverMattn, MattnDriverName:
		return MattnDriverName, a.Path + sep + "_busy_timeout=5000&_foreign_keys=on", nil
	default:
		return "", "", fmt.Errorf("unsupported sqlite driver %q", a.DriverName)
	}
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	driver, dsn, err := a.driverAndDSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) CreateIndex(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

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
		return fmt.Errorf("not a codesearch db")
	}
	return nil
}

func (a *Adapter) Optimize(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}
