package ops

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/codesearch/codesearch/codesearch/highlight"
	"github.com/codesearch/codesearch/codesearch/planner"
	"github.com/codesearch/codesearch/codesearch/query"
	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/codesearch/storage/sqlbuilder"
)

// ErrHighlight marks failures while matching a result's content, such as a
// regex that exceeds its time limit.
var ErrHighlight = errors.New("highlight")

// SearchOptions configures a search operation
type SearchOptions struct {
	UserID int64
	// Limit caps the number of files; 0 means unlimited.
	Limit int
	// Workers bounds concurrent per-row highlighting; <= 0 means one.
	Workers   int
	Highlight highlight.Options
}

// SearchRow is a raw row from the search query
type SearchRow struct {
	ProjectID     int64
	DisplayName   string
	FullName      string
	ProjectURL    string
	AvatarURL     string
	DefaultBranch string
	FilePath      string
	Content       string
}

// SearchMatch is a matching file with its highlighted snippets.
type SearchMatch struct {
	SearchRow
	Spans  []highlight.Span
	Chunks []highlight.Chunk
}

// PreparedSearch is the statement for a query, ready to run.
type PreparedSearch struct {
	SQL   string
	Args  []any
	Steps []string
}

// PrepareSearch builds the search statement without touching the store.
// Qualifier errors surface here, before any I/O.
func PrepareSearch(d storage.Dialect, q *query.Query, opts SearchOptions) (*PreparedSearch, error) {
	builder := sqlbuilder.New(d.PlaceholderStyle())
	sqlText, compiled, err := planner.BuildSearchSQL(d, builder, q, opts.UserID, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("build search SQL: %w", err)
	}
	return &PreparedSearch{SQL: sqlText, Args: builder.Args(), Steps: compiled.ExplainSteps}, nil
}

// Search runs q for opts.UserID and highlights every returned file. Result
// order is the statement's ORDER BY.
func Search(ctx context.Context, db storage.Querier, d storage.Dialect, q *query.Query, opts SearchOptions) ([]SearchMatch, error) {
	// 1. Build statement
	prepared, err := PrepareSearch(d, q, opts)
	if err != nil {
		return nil, err
	}

	// 2. Execute query
	rows, err := db.QueryContext(ctx, prepared.SQL, prepared.Args...)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer rows.Close()

	var searchRows []SearchRow
	for rows.Next() {
		var row SearchRow
		if err := rows.Scan(&row.ProjectID, &row.DisplayName, &row.FullName, &row.ProjectURL,
			&row.AvatarURL, &row.DefaultBranch, &row.FilePath, &row.Content); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		searchRows = append(searchRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	// 3. Highlight rows independently
	return highlightRows(ctx, q, searchRows, opts)
}

func highlightRows(ctx context.Context, q *query.Query, rows []SearchRow, opts SearchOptions) ([]SearchMatch, error) {
	matches := make([]SearchMatch, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc := highlight.NewDocument(row.Content)
			spans, err := highlight.FindMatches(q, doc, opts.Highlight)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrHighlight, row.FilePath, err)
			}
			matches[i] = SearchMatch{SearchRow: row, Spans: spans, Chunks: highlight.Generate(doc, spans)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}
