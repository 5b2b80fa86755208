package ops

import (
	"context"
	"fmt"

	"github.com/codesearch/codesearch/codesearch/storage"
)

// DeleteRepositoryFiles removes path mappings; file contents stay until
// CleanupOrphanedFiles.
func DeleteRepositoryFiles(ctx context.Context, ex storage.Execer, sqlt storage.SQL, projectID int64, branch string, paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		res, err := ex.ExecContext(ctx, sqlt.DeleteRepositoryFile, projectID, branch, p)
		if err != nil {
			return total, fmt.Errorf("delete repository file %s: %w", p, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// CleanupOutdatedRepositoryFiles drops mappings of projectID that are on
// another branch or were not refreshed since startedAtMS.
func CleanupOutdatedRepositoryFiles(ctx context.Context, ex storage.Execer, sqlt storage.SQL, projectID int64, defaultBranch string, startedAtMS int64) (int64, error) {
	res, err := ex.ExecContext(ctx, sqlt.DeleteOutdatedRepositoryFiles, projectID, defaultBranch, startedAtMS)
	if err != nil {
		return 0, fmt.Errorf("delete outdated repository files: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CleanupOrphanedFiles deletes contents created before beforeMS that no
// repository references. The cutoff protects files written by an index run
// that has not linked them yet.
func CleanupOrphanedFiles(ctx context.Context, ex storage.Execer, sqlt storage.SQL, beforeMS int64) (int64, error) {
	res, err := ex.ExecContext(ctx, sqlt.DeleteOrphanedFiles, beforeMS)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned files: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
