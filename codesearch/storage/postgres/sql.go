package postgres

import "github.com/codesearch/codesearch/codesearch/storage"

var SQLTemplates = storage.SQL{
	GetMeta: "SELECT value FROM meta WHERE key = $1",
	SetMeta: "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",

	UpsertRepository: `INSERT INTO repositories(project_id, display_name, full_name, default_branch, project_url, avatar_url, last_indexed_ref, last_indexed_at)
	        VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	        ON CONFLICT(project_id) DO UPDATE
	          SET display_name=EXCLUDED.display_name,
	              full_name=EXCLUDED.full_name,
	              default_branch=EXCLUDED.default_branch,
	              project_url=EXCLUDED.project_url,
	              avatar_url=EXCLUDED.avatar_url,
	              last_indexed_ref=EXCLUDED.last_indexed_ref,
	              last_indexed_at=EXCLUDED.last_indexed_at`,
	EnsureRepository: "INSERT INTO repositories(project_id) VALUES($1) ON CONFLICT(project_id) DO NOTHING",

	InsertFile:      "INSERT INTO files(sha256, created_at) VALUES($1, $2) ON CONFLICT(sha256) DO NOTHING",
	CountFileChunks: "SELECT COUNT(*) FROM file_chunks WHERE file_sha256 = $1",
	InsertFileChunk: `INSERT INTO file_chunks(file_sha256, chunk_order, content) VALUES($1, $2, $3)
	        ON CONFLICT(file_sha256, chunk_order) DO UPDATE SET content=EXCLUDED.content`,

	UpsertRepositoryFile: `INSERT INTO repository_files(project_id, file_path, file_name, branch, file_sha256, updated_at)
	        VALUES($1, $2, $3, $4, $5, $6)
	        ON CONFLICT(project_id, file_path, branch) DO UPDATE
	          SET file_name=EXCLUDED.file_name,
	              file_sha256=EXCLUDED.file_sha256,
	              updated_at=EXCLUDED.updated_at`,
	DeleteRepositoryFile:          "DELETE FROM repository_files WHERE project_id = $1 AND branch = $2 AND file_path = $3",
	DeleteOutdatedRepositoryFiles: "DELETE FROM repository_files WHERE project_id = $1 AND (branch <> $2 OR updated_at < $3)",
	DeleteOrphanedFiles: `DELETE FROM files WHERE created_at < $1
	        AND NOT EXISTS (SELECT 1 FROM repository_files WHERE repository_files.file_sha256 = files.sha256)`,

	DeleteUserRepositories: "DELETE FROM repository_users WHERE user_id = $1",
	InsertRepositoryUser:   "INSERT INTO repository_users(project_id, user_id) VALUES($1, $2) ON CONFLICT DO NOTHING",

	CountRepositories:        "SELECT COUNT(*) FROM repositories",
	CountIndexedRepositories: "SELECT COUNT(*) FROM repositories WHERE last_indexed_ref IS NOT NULL",
	CountFiles:               "SELECT COUNT(*) FROM files",
}
