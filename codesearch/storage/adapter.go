package storage

import (
	"context"
	"database/sql"

	"github.com/codesearch/codesearch/codesearch/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Dialect renders the backend-specific pieces of the search statement.
type Dialect interface {
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	// ContentAggregate reassembles a file's chunks in order. It is only
	// valid in a grouped query over file_chunks.
	ContentAggregate() string
	// ILike is a case-insensitive LIKE with backslash as escape character.
	ILike(expr, placeholder string) string
	// RegexMatch is a case-insensitive regular expression match.
	RegexMatch(expr, placeholder string) string
}

// Adapter abstracts database-specific operations
type Adapter interface {
	Dialect

	Backend() Backend
	IndexID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	CreateIndex(ctx context.Context, db *sql.DB) error
	OpenIndex(ctx context.Context, db *sql.DB) error
	Optimize(ctx context.Context, db *sql.DB) error

	SQL() SQL
}

// Builder interface for placeholder management
type Builder interface {
	Arg(v any) string
	Args() []any
	Len() int
}

// Querier runs a read query. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer runs a write statement. *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQL holds prepared SQL templates for common operations
type SQL struct {
	GetMeta string
	SetMeta string

	UpsertRepository string
	EnsureRepository string

	InsertFile      string
	CountFileChunks string
	InsertFileChunk string

	UpsertRepositoryFile          string
	DeleteRepositoryFile          string
	DeleteOutdatedRepositoryFiles string
	DeleteOrphanedFiles           string

	DeleteUserRepositories string
	InsertRepositoryUser   string

	CountRepositories        string
	CountIndexedRepositories string
	CountFiles               string
}

const (
	MetaMagicKey   = "codesearch_magic"
	MetaMagic      = "codesearch"
	MetaVersionKey = "codesearch_version"
	MetaVersion    = "1"
)
