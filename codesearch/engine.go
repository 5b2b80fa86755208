package codesearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/codesearch/codesearch/codesearch/highlight"
	"github.com/codesearch/codesearch/codesearch/ops"
	"github.com/codesearch/codesearch/codesearch/query"
	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/internal/logging"
)

// Engine represents an open code search index
type Engine struct {
	adapter storage.Adapter
	db      *sql.DB
	opts    Options
	logger  *slog.Logger
}

// File is one path and its content, as written by IndexFiles.
type File struct {
	Path    string
	Content string
}

// Create creates the index tables if needed and opens the engine.
func Create(ctx context.Context, adapter storage.Adapter, opts Options) (*Engine, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}

	if err := adapter.CreateIndex(ctx, db); err != nil {
		db.Close()
		return nil, Wrap(ErrSQL, "create index", err)
	}

	return newEngine(adapter, db, opts), nil
}

// Open opens an existing index
func Open(ctx context.Context, adapter storage.Adapter, opts Options) (*Engine, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}

	if err := adapter.OpenIndex(ctx, db); err != nil {
		db.Close()
		return nil, Wrap(ErrSchema, "open index", err)
	}

	return newEngine(adapter, db, opts), nil
}

func newEngine(adapter storage.Adapter, db *sql.DB, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := logging.Default(opts.Logger).With("component", "engine", "backend", string(adapter.Backend()))
	return &Engine{adapter: adapter, db: db, opts: opts, logger: logger}
}

// Close closes the engine
func (e *Engine) Close() error {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			return Wrap(ErrIO, "close database", err)
		}
	}
	return e.adapter.Close()
}

func (e *Engine) Backend() storage.Backend {
	return e.adapter.Backend()
}

// Now is the engine clock. Index runs use it to mark their start.
func (e *Engine) Now() time.Time {
	return e.opts.Now()
}

func (e *Engine) nowMS() int64 {
	return e.opts.Now().UnixMilli()
}

func (e *Engine) searchOptions(userID int64) ops.SearchOptions {
	return ops.SearchOptions{
		UserID:    userID,
		Limit:     e.opts.MaxResults,
		Workers:   e.opts.Workers,
		Highlight: highlight.Options{RegexTimeout: e.opts.RegexTimeout},
	}
}

// Search returns the files userID may read that match raw, newest content
// first, each with its highlighted snippets. A query without tokens
// matches nothing.
func (e *Engine) Search(ctx context.Context, raw string, userID int64) ([]SearchResult, error) {
	start := time.Now()

	tokens, err := query.Tokenize(raw)
	if err != nil {
		return nil, wrapQuery(ErrLex, "tokenize query", err)
	}
	if len(tokens) == 0 {
		return []SearchResult{}, nil
	}

	q, err := query.ParseTokens(tokens)
	if err != nil {
		return nil, wrapQuery(ErrSyntax, "parse query", err)
	}

	matches, err := ops.Search(ctx, e.db, e.adapter, q, e.searchOptions(userID))
	if err != nil {
		return nil, searchError(err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, toSearchResult(m))
	}

	e.logger.Debug("search",
		"user", userID,
		"tokens", len(tokens),
		"params", len(q.Words())+1,
		"rows", len(results),
		"elapsed", time.Since(start))
	return results, nil
}

func searchError(err error) error {
	if _, ok := query.KindOf(err); ok {
		return wrapQuery(ErrSyntax, "resolve qualifier", err)
	}
	if errors.Is(err, ops.ErrHighlight) {
		return Wrap(ErrHighlight, "highlight results", err)
	}
	return Wrap(ErrSQL, "search", err)
}

func toSearchResult(m ops.SearchMatch) SearchResult {
	chunks := m.Chunks
	if chunks == nil {
		chunks = []Chunk{}
	}
	return SearchResult{
		ProjectID:   m.ProjectID,
		DisplayName: m.DisplayName,
		FullName:    m.FullName,
		ProjectURL:  m.ProjectURL,
		AvatarURL:   m.AvatarURL,
		FilePath:    m.FilePath,
		FileURL:     FileURL(m.ProjectURL, m.DefaultBranch, m.FilePath),
		Chunks:      chunks,
	}
}

// FileURL links to filePath on branch in the hosting web UI. Each path
// segment is escaped on its own so "/" keeps separating directories.
func FileURL(projectURL, branch, filePath string) string {
	return fmt.Sprintf("%s/-/blob/%s/%s?ref_type=heads",
		strings.TrimRight(projectURL, "/"), escapeSegments(branch), escapeSegments(filePath))
}

func escapeSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Explain tokenizes, parses and plans raw for userID without touching the
// store.
func (e *Engine) Explain(raw string, userID int64) (*Explanation, error) {
	tokens, err := query.Tokenize(raw)
	if err != nil {
		return nil, wrapQuery(ErrLex, "tokenize query", err)
	}
	ex := &Explanation{Tokens: make([]string, 0, len(tokens))}
	for _, tok := range tokens {
		ex.Tokens = append(ex.Tokens, tok.String())
	}
	if len(tokens) == 0 {
		return ex, nil
	}

	q, err := query.ParseTokens(tokens)
	if err != nil {
		return nil, wrapQuery(ErrSyntax, "parse query", err)
	}
	ex.AST = q.String()

	prepared, err := ops.PrepareSearch(e.adapter, q, e.searchOptions(userID))
	if err != nil {
		return nil, searchError(err)
	}
	ex.SQL = prepared.SQL
	ex.Args = prepared.Args
	ex.Steps = prepared.Steps
	return ex, nil
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return Wrap(ErrSQL, "commit", err)
	}
	return nil
}

// PutRepository inserts or updates repository metadata
func (e *Engine) PutRepository(ctx context.Context, repo Repository) error {
	if repo.ProjectID <= 0 {
		return InvalidArgument("project_id", "must be positive")
	}
	if err := ops.PutRepository(ctx, e.db, e.adapter.SQL(), repo); err != nil {
		return Wrap(ErrSQL, "put repository", err)
	}
	return nil
}

// IndexFile stores one file of projectID on branch.
func (e *Engine) IndexFile(ctx context.Context, projectID int64, branch, filePath, content string) error {
	return e.IndexFiles(ctx, projectID, branch, []File{{Path: filePath, Content: content}})
}

// IndexFiles stores files of projectID on branch in one transaction. Content
// shared with already indexed files is stored once.
func (e *Engine) IndexFiles(ctx context.Context, projectID int64, branch string, files []File) error {
	if branch == "" {
		return InvalidArgument("branch", "must not be empty")
	}
	for _, f := range files {
		if f.Path == "" {
			return InvalidArgument("path", "must not be empty")
		}
	}

	sqlt := e.adapter.SQL()
	return e.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range files {
			nowMS := e.nowMS()
			sha, err := ops.PutFile(ctx, tx, sqlt, f.Content, nowMS)
			if errors.Is(err, ops.ErrNotText) {
				return &Error{Kind: ErrInvalidArgument, Field: "content", Message: f.Path, Cause: err}
			}
			if err != nil {
				return Wrap(ErrSQL, "put file "+f.Path, err)
			}
			if err := ops.PutRepositoryFile(ctx, tx, sqlt, projectID, branch, f.Path, sha, nowMS); err != nil {
				return Wrap(ErrSQL, "put repository file", err)
			}
		}
		return nil
	})
}

// DeleteRepositoryFiles removes paths of projectID on branch and reports
// how many mappings existed.
func (e *Engine) DeleteRepositoryFiles(ctx context.Context, projectID int64, branch string, paths []string) (int64, error) {
	var n int64
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = ops.DeleteRepositoryFiles(ctx, tx, e.adapter.SQL(), projectID, branch, paths)
		if err != nil {
			return Wrap(ErrSQL, "delete repository files", err)
		}
		return nil
	})
	return n, err
}

// CleanupOutdatedRepositoryFiles removes mappings of projectID that an index
// run starting at startedAt did not refresh, and all mappings on branches
// other than defaultBranch.
func (e *Engine) CleanupOutdatedRepositoryFiles(ctx context.Context, projectID int64, defaultBranch string, startedAt time.Time) (int64, error) {
	n, err := ops.CleanupOutdatedRepositoryFiles(ctx, e.db, e.adapter.SQL(), projectID, defaultBranch, startedAt.UnixMilli())
	if err != nil {
		return 0, Wrap(ErrSQL, "cleanup outdated repository files", err)
	}
	return n, nil
}

// CleanupOrphanedFiles deletes unreferenced content older than grace.
func (e *Engine) CleanupOrphanedFiles(ctx context.Context, grace time.Duration) (int64, error) {
	before := e.opts.Now().Add(-grace).UnixMilli()
	n, err := ops.CleanupOrphanedFiles(ctx, e.db, e.adapter.SQL(), before)
	if err != nil {
		return 0, Wrap(ErrSQL, "cleanup orphaned files", err)
	}
	e.logger.Debug("orphaned files removed", "count", n)
	return n, nil
}

// SetUserRepositories replaces the repositories userID may read.
func (e *Engine) SetUserRepositories(ctx context.Context, userID int64, projectIDs []int64) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := ops.SetUserRepositories(ctx, tx, e.adapter.SQL(), userID, projectIDs); err != nil {
			return Wrap(ErrSQL, "set user repositories", err)
		}
		return nil
	})
}

// GrantAccess lets userID read projectID.
func (e *Engine) GrantAccess(ctx context.Context, projectID, userID int64) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := ops.GrantAccess(ctx, tx, e.adapter.SQL(), projectID, userID); err != nil {
			return Wrap(ErrSQL, "grant access", err)
		}
		return nil
	})
}

// Stats counts repositories and unique files
func (e *Engine) Stats(ctx context.Context) (*StatsResult, error) {
	result, err := ops.Stats(ctx, e.db, e.adapter.SQL())
	if err != nil {
		return nil, Wrap(ErrSQL, "stats", err)
	}
	return result, nil
}

// Optimize refreshes planner statistics and compacts the store.
func (e *Engine) Optimize(ctx context.Context) error {
	if err := e.adapter.Optimize(ctx, e.db); err != nil {
		return Wrap(ErrSQL, "optimize", err)
	}
	return nil
}
