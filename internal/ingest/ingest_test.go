package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
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

func newEngine(t *testing.T) *codesearch.Engine {
	t.Helper()
	opts := codesearch.DefaultOptions()
	opts.Now = monotonicNow(time.Unix(1700000000, 0))
	e, err := codesearch.Create(context.Background(), sqlite.New(filepath.Join(t.TempDir(), "ingest.db")), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func options() Options {
	return Options{
		Repository: codesearch.Repository{
			ProjectID:     1,
			DisplayName:   "Local",
			FullName:      "local/tree",
			DefaultBranch: "main",
			ProjectURL:    "https://git.example.com/local/tree",
		},
		Ref:          "v1",
		Exclude:      []string{"**/node_modules/**", "**/*.min.js"},
		MaxFileBytes: 1000,
		BatchSize:    1,
	}
}

func searchPaths(t *testing.T, e *codesearch.Engine, q string) []string {
	t.Helper()
	results, err := e.Search(context.Background(), q, 7)
	require.NoError(t, err)
	var out []string
	for _, r := range results {
		out = append(out, r.FilePath)
	}
	return out
}

func TestDirectory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                    "package main // hello\n",
		"docs/readme.md":             "Hello docs\n",
		"node_modules/lib/index.js":  "hello from a dependency\n",
		"web/app.min.js":             "hello minified\n",
		"bin/blob.bin":               "hello\x00\x01",
		"data/big.txt":               "hello " + strings.Repeat("x", 2000),
		"web/deep/node_modules/x.js": "hello nested dependency\n",
	})

	res, err := Directory(ctx, e, root, options())
	require.NoError(t, err)
	assert.Equal(t, &Result{Indexed: 2, Skipped: 3, Removed: 0}, res)

	require.NoError(t, e.GrantAccess(ctx, 1, 7))
	assert.ElementsMatch(t, []string{"main.go", "docs/readme.md"}, searchPaths(t, e, "hello"))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalIndexedRepositories)
	assert.Equal(t, int64(2), stats.TotalIndexedUniqueFiles)
}

func TestDirectoryRemovesVanishedFiles(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "hello a\n",
		"sub/b.txt": "hello b\n",
	})

	_, err := Directory(ctx, e, root, options())
	require.NoError(t, err)
	require.NoError(t, e.GrantAccess(ctx, 1, 7))
	assert.Len(t, searchPaths(t, e, "hello"), 2)

	require.NoError(t, os.Remove(filepath.Join(root, "sub", "b.txt")))
	res, err := Directory(ctx, e, root, options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, int64(1), res.Removed)
	assert.Equal(t, []string{"a.txt"}, searchPaths(t, e, "hello"))
}

func TestDirectoryRejectsBadOptions(t *testing.T) {
	e := newEngine(t)
	root := t.TempDir()

	opts := options()
	opts.Exclude = []string{"[unclosed"}
	_, err := Directory(context.Background(), e, root, opts)
	assert.ErrorContains(t, err, "invalid exclude pattern")

	opts = options()
	opts.Repository.DefaultBranch = ""
	_, err = Directory(context.Background(), e, root, opts)
	assert.Error(t, err)
}

func TestDirectoryMissingRoot(t *testing.T) {
	e := newEngine(t)
	_, err := Directory(context.Background(), e, filepath.Join(t.TempDir(), "missing"), options())
	assert.Error(t, err)
}

func TestDirectoryCancelled(t *testing.T) {
	e := newEngine(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Directory(ctx, e, root, options())
	assert.ErrorIs(t, err, context.Canceled)
}
