package ops

import (
	"context"
	"fmt"

	"github.com/codesearch/codesearch/codesearch/storage"
)

// StatsResult summarizes the index.
type StatsResult struct {
	TotalKnownRepositories   int64 `json:"totalKnownRepositories"`
	TotalIndexedRepositories int64 `json:"totalIndexedRepositories"`
	TotalIndexedUniqueFiles  int64 `json:"totalIndexedUniqueFiles"`
}

// Stats counts known and indexed repositories and unique file contents.
func Stats(ctx context.Context, ex storage.Execer, sqlt storage.SQL) (*StatsResult, error) {
	result := &StatsResult{}
	counts := []struct {
		name string
		sql  string
		dst  *int64
	}{
		{"repositories", sqlt.CountRepositories, &result.TotalKnownRepositories},
		{"indexed repositories", sqlt.CountIndexedRepositories, &result.TotalIndexedRepositories},
		{"files", sqlt.CountFiles, &result.TotalIndexedUniqueFiles},
	}
	for _, c := range counts {
		if err := ex.QueryRowContext(ctx, c.sql).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return result, nil
}
