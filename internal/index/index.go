// Package index maintains the searchable repository index on top of the
// sqlite storage layer. Analyses are registered after they complete; the
// index answers listing, substring search, similarity ranking, and
// frontend/backend combination suggestions.
package index

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/config"
	"repolens/internal/errors"
	"repolens/internal/logging"
	"repolens/internal/storage"
)

// Match is one similarity result: an indexed analysis with its Jaccard score
// over the combined language and framework sets, in [0, 1].
type Match struct {
	Analysis analysis.RepositoryAnalysis `json:"analysis"`
	Score    float64                     `json:"score"`
}

// Suggestion pairs a repository carrying a frontend framework with one
// carrying a backend framework.
type Suggestion struct {
	Frontend          string `json:"frontend"`
	FrontendFramework string `json:"frontendFramework"`
	Backend           string `json:"backend"`
	BackendFramework  string `json:"backendFramework"`
}

// Index is the repository index facade.
type Index struct {
	db     *storage.DB
	logger *logging.Logger

	frontend []string
	backend  []string
}

// New creates an Index over db using the configured framework sets for
// combination suggestions.
func New(db *storage.DB, logger *logging.Logger, cfg config.InsightsConfig) *Index {
	return &Index{
		db:       db,
		logger:   logger,
		frontend: cfg.FrontendFrameworks,
		backend:  cfg.BackendFrameworks,
	}
}

// Add registers an analysis in the index, replacing any previous entry for
// the same repository path.
func (ix *Index) Add(a *analysis.RepositoryAnalysis) error {
	if a == nil || a.Path == "" {
		return errors.New(errors.InvalidArgument, "analysis has no repository path")
	}

	languages, err := json.Marshal(a.Languages)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to encode languages", err)
	}
	frameworks, err := json.Marshal(a.Frameworks)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to encode frameworks", err)
	}
	full, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to encode analysis", err)
	}

	rec := storage.RepositoryRecord{
		ID:             a.ID,
		Path:           a.Path,
		Name:           a.Name,
		AnalyzedAt:     a.AnalyzedAt,
		LanguagesJSON:  string(languages),
		FrameworksJSON: string(frameworks),
		AnalysisJSON:   full,
	}
	if err := ix.db.UpsertRepository(rec); err != nil {
		return errors.Wrap(errors.StorageError, "failed to index repository", err)
	}

	ix.logger.Debug("Repository indexed", map[string]interface{}{
		"path": a.Path,
		"name": a.Name,
	})
	return nil
}

// Get returns the indexed analysis for path, or nil when the path has not
// been analyzed.
func (ix *Index) Get(path string) (*analysis.RepositoryAnalysis, error) {
	rec, err := ix.db.GetRepositoryByPath(path)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to read repository index", err)
	}
	if rec == nil {
		return nil, nil
	}
	return decodeRecord(*rec)
}

// List returns all indexed analyses ordered by repository name.
func (ix *Index) List() ([]analysis.RepositoryAnalysis, error) {
	recs, err := ix.db.ListRepositories()
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to list repositories", err)
	}
	return decodeRecords(recs)
}

// Search returns indexed analyses whose name, languages, or frameworks
// contain query, case-insensitive, ordered by name.
func (ix *Index) Search(query string) ([]analysis.RepositoryAnalysis, error) {
	recs, err := ix.db.SearchRepositories(query)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to search repositories", err)
	}
	return decodeRecords(recs)
}

// Remove drops path from the index. Removing an unindexed path is not an
// error.
func (ix *Index) Remove(path string) error {
	if err := ix.db.DeleteRepository(path); err != nil {
		return errors.Wrap(errors.StorageError, "failed to remove repository", err)
	}
	return nil
}

// Similar ranks every other indexed repository by Jaccard similarity of its
// combined language and framework set against path's. Results are ordered by
// score descending, then name, and zero-score entries are dropped.
func (ix *Index) Similar(path string) ([]Match, error) {
	target, err := ix.Get(path)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.New(errors.PathNotFound, "repository is not indexed: "+path)
	}

	all, err := ix.List()
	if err != nil {
		return nil, err
	}

	targetSet := techSet(target)
	var matches []Match
	for _, a := range all {
		if a.Path == target.Path {
			continue
		}
		score := jaccard(targetSet, techSet(&a))
		if score == 0 {
			continue
		}
		matches = append(matches, Match{Analysis: a, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Analysis.Name < matches[j].Analysis.Name
	})
	return matches, nil
}

// Suggestions returns frontend/backend repository pairings across the whole
// index. A repository that carries both kinds of framework never pairs with
// itself.
func (ix *Index) Suggestions() ([]Suggestion, error) {
	all, err := ix.List()
	if err != nil {
		return nil, err
	}

	type hit struct {
		name      string
		framework string
	}
	var frontends, backends []hit
	for _, a := range all {
		if fw := firstFrom(a.Frameworks, ix.frontend); fw != "" {
			frontends = append(frontends, hit{a.Name, fw})
		}
		if fw := firstFrom(a.Frameworks, ix.backend); fw != "" {
			backends = append(backends, hit{a.Name, fw})
		}
	}

	var out []Suggestion
	for _, f := range frontends {
		for _, b := range backends {
			if f.name == b.name {
				continue
			}
			out = append(out, Suggestion{
				Frontend:          f.name,
				FrontendFramework: f.framework,
				Backend:           b.name,
				BackendFramework:  b.framework,
			})
		}
	}
	return out, nil
}

func decodeRecords(recs []storage.RepositoryRecord) ([]analysis.RepositoryAnalysis, error) {
	out := make([]analysis.RepositoryAnalysis, 0, len(recs))
	for _, rec := range recs {
		a, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func decodeRecord(rec storage.RepositoryRecord) (*analysis.RepositoryAnalysis, error) {
	var a analysis.RepositoryAnalysis
	if err := json.Unmarshal(rec.AnalysisJSON, &a); err != nil {
		return nil, errors.Wrap(errors.StorageError, "corrupt index entry: "+rec.Path, err)
	}
	return &a, nil
}

// techSet folds a repository's languages and frameworks into one
// lower-cased set.
func techSet(a *analysis.RepositoryAnalysis) map[string]bool {
	set := make(map[string]bool, len(a.Languages)+len(a.Frameworks))
	for _, l := range a.Languages {
		set[strings.ToLower(l)] = true
	}
	for _, f := range a.Frameworks {
		set[strings.ToLower(f)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	score := float64(inter) / float64(union)
	return math.Round(score*100) / 100
}

func firstFrom(frameworks, wanted []string) string {
	for _, fw := range frameworks {
		for _, w := range wanted {
			if strings.EqualFold(fw, w) {
				return fw
			}
		}
	}
	return ""
}
