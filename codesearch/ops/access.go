package ops

import (
	"context"
	"fmt"

	"github.com/codesearch/codesearch/codesearch/storage"
)

// SetUserRepositories replaces the set of repositories userID may read.
// Unknown project ids get placeholder repository rows.
func SetUserRepositories(ctx context.Context, ex storage.Execer, sqlt storage.SQL, userID int64, projectIDs []int64) error {
	if _, err := ex.ExecContext(ctx, sqlt.DeleteUserRepositories, userID); err != nil {
		return fmt.Errorf("clear repositories of user %d: %w", userID, err)
	}
	for _, id := range projectIDs {
		if err := GrantAccess(ctx, ex, sqlt, id, userID); err != nil {
			return err
		}
	}
	return nil
}

// GrantAccess lets userID read projectID.
func GrantAccess(ctx context.Context, ex storage.Execer, sqlt storage.SQL, projectID, userID int64) error {
	if _, err := ex.ExecContext(ctx, sqlt.EnsureRepository, projectID); err != nil {
		return fmt.Errorf("ensure repository %d: %w", projectID, err)
	}
	if _, err := ex.ExecContext(ctx, sqlt.InsertRepositoryUser, projectID, userID); err != nil {
		return fmt.Errorf("grant repository %d to user %d: %w", projectID, userID, err)
	}
	return nil
}
