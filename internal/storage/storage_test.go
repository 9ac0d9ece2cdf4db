package storage

import (
	"testing"
	"time"

	"repolens/internal/logging"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(logging.NewNop())
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesSchemaOnDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.SetAnalysisBlob("k", "/r", []byte("v"), time.Minute); err != nil {
		t.Errorf("schema should be usable after Open: %v", err)
	}
}

func TestAnalysisCacheRoundTrip(t *testing.T) {
	db := newTestDB(t)

	if _, found, _ := db.GetAnalysisBlob("missing"); found {
		t.Error("missing key should not be found")
	}

	if err := db.SetAnalysisBlob("k1", "/repo", []byte("payload"), time.Minute); err != nil {
		t.Fatal(err)
	}
	value, found, err := db.GetAnalysisBlob("k1")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(value) != "payload" {
		t.Errorf("got (%q, %v), want (payload, true)", value, found)
	}

	// Overwrite replaces.
	if err := db.SetAnalysisBlob("k1", "/repo", []byte("v2"), time.Minute); err != nil {
		t.Fatal(err)
	}
	value, _, _ = db.GetAnalysisBlob("k1")
	if string(value) != "v2" {
		t.Errorf("overwrite failed, got %q", value)
	}
}

func TestCacheExpiry(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetBatchBlob("k", []byte("v"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, found, err := db.GetBatchBlob("k"); err != nil || found {
		t.Errorf("expired entry must be a miss, got found=%v err=%v", found, err)
	}
}

func TestPruneExpired(t *testing.T) {
	db := newTestDB(t)

	_ = db.SetAnalysisBlob("old", "/r", []byte("v"), -time.Hour)
	_ = db.SetAnalysisBlob("new", "/r", []byte("v"), time.Hour)

	if err := db.PruneExpired(); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM analysis_cache").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows after prune = %d, want 1", count)
	}
}

func TestRepositoryUpsertAndSearch(t *testing.T) {
	db := newTestDB(t)

	rec := RepositoryRecord{
		ID:             "id-1",
		Path:           "/repos/frontend",
		Name:           "frontend",
		AnalyzedAt:     time.Now().UTC(),
		LanguagesJSON:  `["TypeScript","JavaScript"]`,
		FrameworksJSON: `["react"]`,
		AnalysisJSON:   []byte(`{}`),
	}
	if err := db.UpsertRepository(rec); err != nil {
		t.Fatal(err)
	}

	t.Run("get by path", func(t *testing.T) {
		got, err := db.GetRepositoryByPath("/repos/frontend")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Name != "frontend" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("get missing path", func(t *testing.T) {
		got, err := db.GetRepositoryByPath("/nope")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("upsert replaces by path", func(t *testing.T) {
		rec2 := rec
		rec2.ID = "id-2"
		rec2.FrameworksJSON = `["react","next"]`
		if err := db.UpsertRepository(rec2); err != nil {
			t.Fatal(err)
		}

		all, err := db.ListRepositories()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 || all[0].ID != "id-2" {
			t.Errorf("after upsert: %+v", all)
		}
	})

	t.Run("search by framework", func(t *testing.T) {
		hits, err := db.SearchRepositories("react")
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 1 {
			t.Errorf("hits = %d, want 1", len(hits))
		}
	})

	t.Run("search case-insensitive", func(t *testing.T) {
		hits, err := db.SearchRepositories("FRONTEND")
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 1 {
			t.Errorf("hits = %d, want 1", len(hits))
		}
	})

	t.Run("search no match", func(t *testing.T) {
		hits, err := db.SearchRepositories("cobol")
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 0 {
			t.Errorf("hits = %d, want 0", len(hits))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := db.DeleteRepository("/repos/frontend"); err != nil {
			t.Fatal(err)
		}
		got, _ := db.GetRepositoryByPath("/repos/frontend")
		if got != nil {
			t.Error("repository should be gone after delete")
		}
	})
}
