// Package ingest indexes a local directory as one repository.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/codesearch/ops"
	"github.com/codesearch/codesearch/internal/logging"
)

// Indexer is the write side of *codesearch.Engine.
type Indexer interface {
	Now() time.Time
	PutRepository(ctx context.Context, repo codesearch.Repository) error
	IndexFiles(ctx context.Context, projectID int64, branch string, files []codesearch.File) error
	CleanupOutdatedRepositoryFiles(ctx context.Context, projectID int64, defaultBranch string, startedAt time.Time) (int64, error)
}

type Options struct {
	Repository codesearch.Repository
	// Ref is recorded as the last indexed ref once the run completes.
	Ref string
	// Exclude holds doublestar patterns matched against slash-separated
	// paths relative to the root.
	Exclude      []string
	MaxFileBytes int64
	BatchSize    int
	Logger       *slog.Logger
}

type Result struct {
	Indexed int
	Skipped int
	Removed int64
}

// Directory walks root and writes every text file under it to the default
// branch of opts.Repository. Mappings from earlier runs that this run did
// not touch are removed afterwards.
func Directory(ctx context.Context, ix Indexer, root string, opts Options) (*Result, error) {
	repo := opts.Repository
	if repo.DefaultBranch == "" {
		return nil, fmt.Errorf("repository %d: default branch is required", repo.ProjectID)
	}
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Ref == "" {
		opts.Ref = "local"
	}
	logger := logging.Default(opts.Logger).With("component", "ingest", "project", repo.ProjectID)

	startedAt := ix.Now()

	// The repository row must exist before files reference it; it is only
	// marked as indexed at the end.
	pending := repo
	pending.LastIndexedRef = ""
	pending.LastIndexedAtMS = 0
	if err := ix.PutRepository(ctx, pending); err != nil {
		return nil, err
	}

	w := &walker{ctx: ctx, ix: ix, opts: opts, root: root, logger: logger, result: &Result{}}
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if err := w.flush(ctx); err != nil {
		return nil, err
	}

	removed, err := ix.CleanupOutdatedRepositoryFiles(ctx, repo.ProjectID, repo.DefaultBranch, startedAt)
	if err != nil {
		return nil, err
	}
	w.result.Removed = removed

	repo.LastIndexedRef = opts.Ref
	repo.LastIndexedAtMS = ix.Now().UnixMilli()
	if err := ix.PutRepository(ctx, repo); err != nil {
		return nil, err
	}

	logger.Info("directory indexed",
		"root", root,
		"indexed", w.result.Indexed,
		"skipped", w.result.Skipped,
		"removed", removed,
		"elapsed", time.Since(startedAt))
	return w.result, nil
}

type walker struct {
	ctx    context.Context
	ix     Indexer
	opts   Options
	root   string
	logger *slog.Logger
	batch  []codesearch.File
	result *Result
}

func (w *walker) excluded(rel string) bool {
	for _, p := range w.opts.Exclude {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if err := w.ctx.Err(); err != nil {
		return err
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	rel = filepath.ToSlash(rel)

	if d.IsDir() {
		if w.excluded(rel) {
			return filepath.SkipDir
		}
		return nil
	}
	if !d.Type().IsRegular() || w.excluded(rel) {
		w.result.Skipped++
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return err
	}
	if w.opts.MaxFileBytes > 0 && info.Size() > w.opts.MaxFileBytes {
		w.logger.Debug("skipping large file", "path", rel, "size", info.Size())
		w.result.Skipped++
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !ops.IsText(content) {
		w.result.Skipped++
		return nil
	}

	w.batch = append(w.batch, codesearch.File{Path: rel, Content: string(content)})
	if len(w.batch) >= w.opts.BatchSize {
		return w.flush(w.ctx)
	}
	return nil
}

func (w *walker) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	repo := w.opts.Repository
	if err := w.ix.IndexFiles(ctx, repo.ProjectID, repo.DefaultBranch, w.batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	w.result.Indexed += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}
