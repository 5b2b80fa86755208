package ops

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesearch/codesearch/codesearch/query"
	"github.com/codesearch/codesearch/codesearch/storage"
	"github.com/codesearch/codesearch/codesearch/storage/sqlite"
)

type fixture struct {
	db      *sql.DB
	adapter *sqlite.Adapter
	now     int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	a := sqlite.New(filepath.Join(t.TempDir(), "ops.db"))
	db, err := a.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, a.CreateIndex(ctx, db))
	return &fixture{db: db, adapter: a, now: 1700000000000}
}

func (f *fixture) tick() int64 {
	f.now++
	return f.now
}

func (f *fixture) repo(t *testing.T, id int64, fullName string) {
	t.Helper()
	require.NoError(t, PutRepository(context.Background(), f.db, f.adapter.SQL(), Repository{
		ProjectID:       id,
		DisplayName:     filepath.Base(fullName),
		FullName:        fullName,
		DefaultBranch:   "main",
		ProjectURL:      "https://git.example.com/" + fullName,
		LastIndexedRef:  "abc123",
		LastIndexedAtMS: f.tick(),
	}))
}

func (f *fixture) file(t *testing.T, projectID int64, path, content string) string {
	t.Helper()
	ctx := context.Background()
	sha, err := PutFile(ctx, f.db, f.adapter.SQL(), content, f.tick())
	require.NoError(t, err)
	require.NoError(t, PutRepositoryFile(ctx, f.db, f.adapter.SQL(), projectID, "main", path, sha, f.tick()))
	return sha
}

func (f *fixture) search(t *testing.T, input string, userID int64) []SearchMatch {
	t.Helper()
	q, err := query.Parse(input)
	require.NoError(t, err)
	matches, err := Search(context.Background(), f.db, f.adapter, q, SearchOptions{UserID: userID, Workers: 4})
	require.NoError(t, err, input)
	return matches
}

func paths(matches []SearchMatch) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.FilePath)
	}
	sort.Strings(out)
	return out
}

func seeded(t *testing.T) *fixture {
	f := newFixture(t)
	ctx := context.Background()
	f.repo(t, 1, "acme/alpha")
	f.repo(t, 2, "acme/beta")
	f.file(t, 1, "src/main.go", "package main\n\nfunc main() {\n\tprintln(\"Hello World\")\n}\n")
	f.file(t, 1, "README.md", "# Alpha\nSay hello to the world.\n")
	f.file(t, 1, "docs/100%.txt", "progress 100% done")
	f.file(t, 2, "lib/util.ts", "export const hello = 1;\n")

	require.NoError(t, SetUserRepositories(ctx, f.db, f.adapter.SQL(), 7, []int64{1}))
	require.NoError(t, SetUserRepositories(ctx, f.db, f.adapter.SQL(), 8, []int64{1, 2}))
	return f
}

func TestSearchAccessControl(t *testing.T) {
	f := seeded(t)

	assert.Equal(t, []string{"README.md", "src/main.go"}, paths(f.search(t, "hello", 7)))
	assert.Equal(t, []string{"README.md", "lib/util.ts", "src/main.go"}, paths(f.search(t, "hello", 8)))
	assert.Empty(t, f.search(t, "hello", 9))
}

func TestSearchQualifiers(t *testing.T) {
	f := seeded(t)

	assert.Equal(t, []string{"README.md"}, paths(f.search(t, "hello extension:md", 7)))
	assert.Equal(t, []string{"src/main.go"}, paths(f.search(t, "/hel+o/ path:src", 7)))
	assert.Equal(t, []string{"lib/util.ts"}, paths(f.search(t, "hello namespace:beta", 8)))
	assert.Equal(t, []string{"src/main.go"}, paths(f.search(t, "filename:MAIN", 8)))
	assert.Equal(t, []string{"lib/util.ts"}, paths(f.search(t, "extension:/^(ts|js)$/ || extension:ts", 8)))
}

func TestSearchBooleanOperators(t *testing.T) {
	f := seeded(t)

	assert.Equal(t, []string{"README.md", "src/main.go"}, paths(f.search(t, "world hello", 7)))
	assert.Equal(t, []string{"docs/100%.txt", "src/main.go"}, paths(f.search(t, "println || progress", 7)))
	assert.Equal(t, []string{"src/main.go"}, paths(f.search(t, "(println || progress) world", 7)))
}

func TestSearchEscapesLikePatterns(t *testing.T) {
	f := seeded(t)

	assert.Equal(t, []string{"docs/100%.txt"}, paths(f.search(t, `"100%"`, 7)))
	assert.Empty(t, f.search(t, "100_", 7))
	assert.Empty(t, f.search(t, `100\%x`, 7))
}

func TestSearchHighlights(t *testing.T) {
	f := seeded(t)

	matches := f.search(t, "hello path:src", 7)
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, "acme/alpha", m.FullName)
	assert.Equal(t, "https://git.example.com/acme/alpha", m.ProjectURL)
	assert.Equal(t, "main", m.DefaultBranch)
	require.Len(t, m.Chunks, 1)
	assert.Equal(t, 1, m.Chunks[0].FirstLineNumber)
	assert.Contains(t, m.Chunks[0].HTML, `println(&quot;<span class="highlighted-content">Hello</span> World&quot;)`)
}

func TestSearchNewestFirst(t *testing.T) {
	f := seeded(t)
	matches := f.search(t, "", 7)
	require.Len(t, matches, 3)
	assert.Equal(t, "docs/100%.txt", matches[0].FilePath)
	assert.Equal(t, "src/main.go", matches[2].FilePath)
	assert.Empty(t, matches[0].Chunks)
}

func TestSearchLimit(t *testing.T) {
	f := seeded(t)
	q, err := query.Parse("")
	require.NoError(t, err)
	matches, err := Search(context.Background(), f.db, f.adapter, q, SearchOptions{UserID: 8, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestSearchReassemblesChunks(t *testing.T) {
	f := newFixture(t)
	f.repo(t, 1, "acme/big")
	content := strings.Repeat("x", MaxChunkBytes-3) + "needle" + strings.Repeat("\ny", 100)
	sha := f.file(t, 1, "big.txt", content)
	require.NoError(t, GrantAccess(context.Background(), f.db, f.adapter.SQL(), 1, 7))

	var chunks int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM file_chunks WHERE file_sha256 = ?1", sha).Scan(&chunks))
	assert.Equal(t, 2, chunks)

	matches := f.search(t, "NEEDLE", 7)
	require.Len(t, matches, 1)
	assert.Equal(t, content, matches[0].Content)
	assert.Len(t, matches[0].Spans, 1)
}

type failingQuerier struct {
	err   error
	calls int
}

func (q *failingQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	q.calls++
	return nil, q.err
}

var _ storage.Querier = (*failingQuerier)(nil)

func TestSearchQualifierErrorBeforeIO(t *testing.T) {
	fq := &failingQuerier{err: errors.New("unreachable")}
	q := &query.Query{Nodes: []*query.And{{Nodes: []*query.Or{
		{Nodes: []*query.Term{{Node: query.NewWord(query.Token{Kind: query.TokText, Value: "hello"})}}},
		{Nodes: []*query.Term{{Node: query.NewWord(query.Token{Kind: query.TokQualifier, Value: "bogus:value"})}}},
	}}}}

	_, err := Search(context.Background(), fq, sqlite.New(""), q, SearchOptions{UserID: 1})
	kind, ok := query.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, query.ErrUnknownQualifier, kind)
	assert.Zero(t, fq.calls)
}

func TestSearchPropagatesStorageError(t *testing.T) {
	boom := errors.New("connection reset")
	fq := &failingQuerier{err: boom}
	q, err := query.Parse("hello")
	require.NoError(t, err)

	_, err = Search(context.Background(), fq, sqlite.New(""), q, SearchOptions{UserID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fq.calls)
}

func TestPutFileDeduplicates(t *testing.T) {
	f := newFixture(t)
	f.repo(t, 1, "acme/a")
	f.repo(t, 2, "acme/b")
	sha1 := f.file(t, 1, "a.txt", "same content")
	sha2 := f.file(t, 2, "b/a.txt", "same content")
	assert.Equal(t, sha1, sha2)
	assert.Equal(t, ContentHash("same content"), sha1)

	stats, err := Stats(context.Background(), f.db, f.adapter.SQL())
	require.NoError(t, err)
	assert.Equal(t, &StatsResult{TotalKnownRepositories: 2, TotalIndexedRepositories: 2, TotalIndexedUniqueFiles: 1}, stats)
}

func TestPutFileRejectsBinary(t *testing.T) {
	f := newFixture(t)
	_, err := PutFile(context.Background(), f.db, f.adapter.SQL(), "a\x00b", f.tick())
	assert.ErrorIs(t, err, ErrNotText)
}

func TestCleanup(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	sqlt := f.adapter.SQL()

	n, err := DeleteRepositoryFiles(ctx, f.db, sqlt, 1, "main", []string{"README.md", "missing.txt"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Created before the cutoff and unreferenced.
	n, err = CleanupOrphanedFiles(ctx, f.db, sqlt, f.tick())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var chunks int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM file_chunks").Scan(&chunks))
	assert.Equal(t, 3, chunks)

	// Refresh one file, then drop everything in repo 1 not touched since.
	started := f.tick()
	f.file(t, 1, "src/main.go", "package main\n")
	n, err = CleanupOutdatedRepositoryFiles(ctx, f.db, sqlt, 1, "main", started)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"src/main.go"}, paths(f.search(t, "", 7)))

	stats, err := Stats(ctx, f.db, sqlt)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalIndexedUniqueFiles)
}

func TestSetUserRepositoriesReplaces(t *testing.T) {
	f := seeded(t)
	require.NoError(t, SetUserRepositories(context.Background(), f.db, f.adapter.SQL(), 8, []int64{2, 3}))
	assert.Equal(t, []string{"lib/util.ts"}, paths(f.search(t, "hello", 8)))

	stats, err := Stats(context.Background(), f.db, f.adapter.SQL())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalKnownRepositories)
	assert.Equal(t, int64(2), stats.TotalIndexedRepositories)
}
