package postgres

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS repositories (
  project_id       BIGINT PRIMARY KEY,
  display_name     TEXT NOT NULL DEFAULT '',
  full_name        TEXT NOT NULL DEFAULT '',
  default_branch   TEXT NOT NULL DEFAULT '',
  project_url      TEXT NOT NULL DEFAULT '',
  avatar_url       TEXT NOT NULL DEFAULT '',
  last_indexed_ref TEXT,
  last_indexed_at  BIGINT
);

CREATE TABLE IF NOT EXISTS files (
  sha256     TEXT PRIMARY KEY,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_created ON files(created_at);

CREATE TABLE IF NOT EXISTS file_chunks (
  file_sha256 TEXT    NOT NULL REFERENCES files(sha256) ON DELETE CASCADE,
  chunk_order INTEGER NOT NULL,
  content     TEXT    NOT NULL,
  PRIMARY KEY (file_sha256, chunk_order)
);

CREATE TABLE IF NOT EXISTS repository_files (
  project_id  BIGINT NOT NULL REFERENCES repositories(project_id) ON DELETE CASCADE,
  file_path   TEXT   NOT NULL,
  file_name   TEXT   NOT NULL,
  branch      TEXT   NOT NULL,
  file_sha256 TEXT   NOT NULL REFERENCES files(sha256),
  updated_at  BIGINT NOT NULL,
  PRIMARY KEY (project_id, file_path, branch)
);
CREATE INDEX IF NOT EXISTS idx_repository_files_sha ON repository_files(file_sha256);

CREATE TABLE IF NOT EXISTS repository_users (
  project_id BIGINT NOT NULL REFERENCES repositories(project_id) ON DELETE CASCADE,
  user_id    BIGINT NOT NULL,
  PRIMARY KEY (project_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_repository_users_user ON repository_users(user_id);
`
