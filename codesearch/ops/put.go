package ops

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/codesearch/codesearch/codesearch/storage"
)

// ErrNotText is returned for content that cannot be stored as text.
var ErrNotText = errors.New("content is not valid UTF-8 text")

// Repository is the indexed metadata of one hosted project.
type Repository struct {
	ProjectID     int64
	DisplayName   string
	FullName      string
	DefaultBranch string
	ProjectURL    string
	AvatarURL     string
	// LastIndexedRef is empty until the repository has been indexed.
	LastIndexedRef  string
	LastIndexedAtMS int64
}

// PutRepository inserts or updates repository metadata.
func PutRepository(ctx context.Context, ex storage.Execer, sqlt storage.SQL, repo Repository) error {
	var ref sql.NullString
	if repo.LastIndexedRef != "" {
		ref = sql.NullString{String: repo.LastIndexedRef, Valid: true}
	}
	var at sql.NullInt64
	if repo.LastIndexedAtMS != 0 {
		at = sql.NullInt64{Int64: repo.LastIndexedAtMS, Valid: true}
	}
	_, err := ex.ExecContext(ctx, sqlt.UpsertRepository,
		repo.ProjectID, repo.DisplayName, repo.FullName, repo.DefaultBranch,
		repo.ProjectURL, repo.AvatarURL, ref, at)
	if err != nil {
		return fmt.Errorf("upsert repository %d: %w", repo.ProjectID, err)
	}
	return nil
}

// ContentHash is the hex SHA-256 that content is stored under.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IsText reports whether content can be stored and searched as text.
func IsText(content []byte) bool {
	return utf8.Valid(content) && !strings.ContainsRune(string(content), 0)
}

// PutFile stores content once under its hash, split into chunks of at most
// MaxChunkBytes. It returns the hash.
func PutFile(ctx context.Context, ex storage.Execer, sqlt storage.SQL, content string, nowMS int64) (string, error) {
	if !IsText([]byte(content)) {
		return "", ErrNotText
	}
	sha := ContentHash(content)

	if _, err := ex.ExecContext(ctx, sqlt.InsertFile, sha, nowMS); err != nil {
		return "", fmt.Errorf("insert file: %w", err)
	}

	var existing int
	if err := ex.QueryRowContext(ctx, sqlt.CountFileChunks, sha).Scan(&existing); err != nil {
		return "", fmt.Errorf("count chunks: %w", err)
	}
	if existing > 0 {
		return sha, nil
	}

	for i, chunk := range ChunkString(content, MaxChunkBytes) {
		if _, err := ex.ExecContext(ctx, sqlt.InsertFileChunk, sha, i, chunk); err != nil {
			return "", fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return sha, nil
}

// PutRepositoryFile points filePath on branch at the stored content sha.
func PutRepositoryFile(ctx context.Context, ex storage.Execer, sqlt storage.SQL, projectID int64, branch, filePath, sha string, nowMS int64) error {
	_, err := ex.ExecContext(ctx, sqlt.UpsertRepositoryFile,
		projectID, filePath, path.Base(filePath), branch, sha, nowMS)
	if err != nil {
		return fmt.Errorf("upsert repository file %s: %w", filePath, err)
	}
	return nil
}
