package storage

// schemaSQL creates all tables. Idempotent so Open can run it every time.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_cache (
    key        TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    value      BLOB NOT NULL,
    expires_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_cache (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS repositories (
    id              TEXT PRIMARY KEY,
    path            TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    analyzed_at     TEXT NOT NULL,
    languages_json  TEXT NOT NULL,
    frameworks_json TEXT NOT NULL,
    analysis_json   BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_repositories_name ON repositories(name);
CREATE INDEX IF NOT EXISTS idx_analysis_cache_path ON analysis_cache(path);
`
