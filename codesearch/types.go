package codesearch

import (
	"log/slog"
	"time"

	"github.com/codesearch/codesearch/codesearch/highlight"
	"github.com/codesearch/codesearch/codesearch/ops"
)

// Options configures engine behavior
type Options struct {
	Now func() time.Time
	// MaxResults caps the files returned by one search; 0 means unlimited.
	MaxResults int
	// Workers bounds concurrent highlighting of result rows.
	Workers int
	// RegexTimeout bounds each in-process regex evaluation; 0 disables it.
	RegexTimeout time.Duration
	Logger       *slog.Logger
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Now:          time.Now,
		MaxResults:   DefaultMaxResults,
		Workers:      DefaultWorkers,
		RegexTimeout: DefaultRegexTimeout,
	}
}

type (
	Repository  = ops.Repository
	StatsResult = ops.StatsResult
	Chunk       = highlight.Chunk
)

// SearchResult is one matching file as rendered to a client.
type SearchResult struct {
	ProjectID   int64   `json:"projectId"`
	DisplayName string  `json:"displayName"`
	FullName    string  `json:"fullName"`
	ProjectURL  string  `json:"projectUrl"`
	AvatarURL   string  `json:"avatarUrl,omitempty"`
	FilePath    string  `json:"filePath"`
	FileURL     string  `json:"fileUrl"`
	Chunks      []Chunk `json:"chunks"`
}

// Explanation describes how a query would run, without running it.
type Explanation struct {
	Tokens []string `json:"tokens"`
	AST    string   `json:"ast,omitempty"`
	SQL    string   `json:"sql,omitempty"`
	Args   []any    `json:"args,omitempty"`
	Steps  []string `json:"steps,omitempty"`
}
