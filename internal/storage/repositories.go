package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// RepositoryRecord is one row of the repository index.
type RepositoryRecord struct {
	ID             string
	Path           string
	Name           string
	AnalyzedAt     time.Time
	LanguagesJSON  string
	FrameworksJSON string
	AnalysisJSON   []byte
}

// UpsertRepository inserts or replaces the index row for a repository path.
func (db *DB) UpsertRepository(rec RepositoryRecord) error {
	_, err := db.Exec(`
		INSERT INTO repositories (id, path, name, analyzed_at, languages_json, frameworks_json, analysis_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id = excluded.id,
			name = excluded.name,
			analyzed_at = excluded.analyzed_at,
			languages_json = excluded.languages_json,
			frameworks_json = excluded.frameworks_json,
			analysis_json = excluded.analysis_json
	`, rec.ID, rec.Path, rec.Name, rec.AnalyzedAt.Format(time.RFC3339),
		rec.LanguagesJSON, rec.FrameworksJSON, rec.AnalysisJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}
	return nil
}

// GetRepositoryByPath returns the index row for path, or nil when absent.
func (db *DB) GetRepositoryByPath(path string) (*RepositoryRecord, error) {
	row := db.QueryRow(`
		SELECT id, path, name, analyzed_at, languages_json, frameworks_json, analysis_json
		FROM repositories WHERE path = ?
	`, path)
	return scanRepository(row)
}

// ListRepositories returns all index rows ordered by name.
func (db *DB) ListRepositories() ([]RepositoryRecord, error) {
	rows, err := db.Query(`
		SELECT id, path, name, analyzed_at, languages_json, frameworks_json, analysis_json
		FROM repositories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var out []RepositoryRecord
	for rows.Next() {
		var rec RepositoryRecord
		var analyzedAt string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Name, &analyzedAt,
			&rec.LanguagesJSON, &rec.FrameworksJSON, &rec.AnalysisJSON); err != nil {
			return nil, err
		}
		rec.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SearchRepositories returns index rows whose name, languages, or frameworks
// contain the query substring (case-insensitive), ordered by name.
func (db *DB) SearchRepositories(query string) ([]RepositoryRecord, error) {
	like := "%" + query + "%"
	rows, err := db.Query(`
		SELECT id, path, name, analyzed_at, languages_json, frameworks_json, analysis_json
		FROM repositories
		WHERE name LIKE ? COLLATE NOCASE
		   OR languages_json LIKE ? COLLATE NOCASE
		   OR frameworks_json LIKE ? COLLATE NOCASE
		ORDER BY name
	`, like, like, like)
	if err != nil {
		return nil, fmt.Errorf("failed to search repositories: %w", err)
	}
	defer rows.Close()

	var out []RepositoryRecord
	for rows.Next() {
		var rec RepositoryRecord
		var analyzedAt string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Name, &analyzedAt,
			&rec.LanguagesJSON, &rec.FrameworksJSON, &rec.AnalysisJSON); err != nil {
			return nil, err
		}
		rec.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRepository removes the index row for path. Deleting an unindexed path
// is not an error.
func (db *DB) DeleteRepository(path string) error {
	_, err := db.Exec("DELETE FROM repositories WHERE path = ?", path)
	return err
}

func scanRepository(row *sql.Row) (*RepositoryRecord, error) {
	var rec RepositoryRecord
	var analyzedAt string
	err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &analyzedAt,
		&rec.LanguagesJSON, &rec.FrameworksJSON, &rec.AnalysisJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
	return &rec, nil
}
