package codesearch_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/codesearch/storage/sqlite"
)

func monotonicNow(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func newEngine(t *testing.T) (*codesearch.Engine, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	opts := codesearch.DefaultOptions()
	opts.Now = monotonicNow(time.Unix(1700000000, 0)) // deterministic ordering

	e, err := codesearch.Create(context.Background(), sqlite.New(dbPath), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, dbPath
}

func seed(t *testing.T, e *codesearch.Engine) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.PutRepository(ctx, codesearch.Repository{
		ProjectID:       1,
		DisplayName:     "Alpha",
		FullName:        "acme/alpha",
		DefaultBranch:   "main",
		ProjectURL:      "https://git.example.com/acme/alpha",
		AvatarURL:       "https://git.example.com/avatar/1.png",
		LastIndexedRef:  "0123abcd",
		LastIndexedAtMS: 1700000000000,
	}))
	require.NoError(t, e.IndexFiles(ctx, 1, "main", []codesearch.File{
		{Path: "src/main.go", Content: "package main\n\nfunc main() {\n\tprintln(\"Hello World\")\n}\n"},
		{Path: "docs/what is this?.md", Content: "Hello <docs> & friends\n"},
	}))
	require.NoError(t, e.GrantAccess(ctx, 1, 7))
}

func TestCreateOpen_SQLite(t *testing.T) {
	e, dbPath := newEngine(t)
	seed(t, e)
	require.NoError(t, e.Close())

	reopened, err := codesearch.Open(context.Background(), sqlite.New(dbPath), codesearch.DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(context.Background(), "hello", 7)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestOpenRejectsForeignDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE meta(key TEXT PRIMARY KEY, value TEXT); INSERT INTO meta VALUES('codesearch_magic', 'something-else')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = codesearch.Open(context.Background(), sqlite.New(dbPath), codesearch.DefaultOptions())
	assert.True(t, codesearch.IsKind(err, codesearch.ErrSchema), "got %v", err)
}

func TestSearch_SQLite(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)

	results, err := e.Search(context.Background(), "hello path:src", 7)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, int64(1), r.ProjectID)
	assert.Equal(t, "Alpha", r.DisplayName)
	assert.Equal(t, "acme/alpha", r.FullName)
	assert.Equal(t, "https://git.example.com/avatar/1.png", r.AvatarURL)
	assert.Equal(t, "src/main.go", r.FilePath)
	assert.Equal(t, "https://git.example.com/acme/alpha/-/blob/main/src/main.go?ref_type=heads", r.FileURL)
	require.Len(t, r.Chunks, 1)
	assert.Equal(t, 1, r.Chunks[0].FirstLineNumber)
	assert.Contains(t, r.Chunks[0].HTML, `<span class="highlighted-content">Hello</span>`)
}

func TestSearchEscapesFileURLAndHTML_SQLite(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)

	results, err := e.Search(context.Background(), `"<docs>"`, 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://git.example.com/acme/alpha/-/blob/main/docs/what%20is%20this%3F.md?ref_type=heads", results[0].FileURL)
	assert.Equal(t, "Hello <span class=\"highlighted-content\">&lt;docs&gt;</span> &amp; friends\n", results[0].Chunks[0].HTML)
}

func TestSearchWithoutAccess_SQLite(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)

	results, err := e.Search(context.Background(), "hello", 8)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)

	for _, raw := range []string{"", "   "} {
		results, err := e.Search(context.Background(), raw, 7)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
}

func TestSearchClientErrors(t *testing.T) {
	e, _ := newEngine(t)

	cases := []struct {
		raw  string
		kind codesearch.ErrorKind
	}{
		{`hello\`, codesearch.ErrLex},
		{"(hello", codesearch.ErrSyntax},
		{"||", codesearch.ErrSyntax},
		{"bogus:value", codesearch.ErrUnknownQualifier},
		{"path:a:b", codesearch.ErrInvalidQualifierValue},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			_, err := e.Search(context.Background(), tc.raw, 7)
			require.Error(t, err)
			assert.True(t, codesearch.IsKind(err, tc.kind), "got %v", err)
			assert.True(t, codesearch.IsClientError(err))

			_, err = e.Explain(tc.raw, 7)
			assert.True(t, codesearch.IsKind(err, tc.kind), "explain got %v", err)
		})
	}
}

func TestSearchStorageFailure(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.Close())

	_, err := e.Search(context.Background(), "hello", 7)
	require.Error(t, err)
	assert.True(t, codesearch.IsKind(err, codesearch.ErrSQL), "got %v", err)
	assert.False(t, codesearch.IsClientError(err))
}

func TestExplain(t *testing.T) {
	e, _ := newEngine(t)

	ex, err := e.Explain("hello /wor.d/ extension:go", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEXT(hello)", "REGEX(/wor.d/)", "QUALIFIER(extension:go)"}, ex.Tokens)
	assert.Equal(t, "Query[And[Or[TEXT(hello)], Or[REGEX(/wor.d/)], Or[QUALIFIER(extension:go)]]]", ex.AST)
	assert.Equal(t, []any{int64(7), "%hello%", "wor.d", "%.go"}, ex.Args)
	assert.Contains(t, ex.SQL, "repository_users.user_id = ?1")
	assert.Contains(t, ex.SQL, "REGEXP ?3")
	assert.Contains(t, ex.SQL, `repository_files.file_name LIKE ?4 ESCAPE '\'`)
	assert.Len(t, ex.Steps, 3)

	empty, err := e.Explain("", 7)
	require.NoError(t, err)
	assert.Empty(t, empty.Tokens)
	assert.Empty(t, empty.SQL)
}

func TestIndexFilesRejectsBinary(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	err := e.IndexFile(ctx, 1, "main", "bin/tool", "\xff\xfe")
	assert.True(t, codesearch.IsKind(err, codesearch.ErrInvalidArgument), "got %v", err)

	err = e.IndexFile(ctx, 1, "", "a.txt", "a")
	assert.True(t, codesearch.IsKind(err, codesearch.ErrInvalidArgument))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalIndexedUniqueFiles)
}

func TestReindexAndCleanup_SQLite(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)
	ctx := context.Background()

	started := e.Now()
	require.NoError(t, e.IndexFile(ctx, 1, "main", "src/main.go", "package main\n"))

	n, err := e.CleanupOutdatedRepositoryFiles(ctx, 1, "main", started)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.CleanupOrphanedFiles(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "inside grace period")

	n, err = e.CleanupOrphanedFiles(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &codesearch.StatsResult{
		TotalKnownRepositories:   1,
		TotalIndexedRepositories: 1,
		TotalIndexedUniqueFiles:  1,
	}, stats)

	results, err := e.Search(ctx, "hello", 7)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, e.Optimize(ctx))
}

func TestSetUserRepositories_SQLite(t *testing.T) {
	e, _ := newEngine(t)
	seed(t, e)
	ctx := context.Background()

	require.NoError(t, e.SetUserRepositories(ctx, 7, nil))
	results, err := e.Search(ctx, "hello", 7)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, e.SetUserRepositories(ctx, 9, []int64{1}))
	results, err = e.Search(ctx, "hello", 9)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	n, err := e.DeleteRepositoryFiles(ctx, 1, "main", []string{"src/main.go"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	results, err = e.Search(ctx, "hello", 9)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFileURL(t *testing.T) {
	assert.Equal(t,
		"https://h/g/p/-/blob/feature/x/a/b%23c.txt?ref_type=heads",
		codesearch.FileURL("https://h/g/p/", "feature/x", "a/b#c.txt"))
}
