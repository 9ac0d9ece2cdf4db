package analysis

import (
	"context"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolens/internal/config"
	"repolens/internal/errors"
	"repolens/internal/logging"
)

const maxFindingsPerKind = 100

// FSAnalyzer analyzes repositories on the local filesystem.
type FSAnalyzer struct {
	cfg    config.AnalysisConfig
	logger *logging.Logger
}

// NewFSAnalyzer creates an analyzer with the given settings.
func NewFSAnalyzer(cfg config.AnalysisConfig, logger *logging.Logger) *FSAnalyzer {
	return &FSAnalyzer{cfg: cfg, logger: logger}
}

// Analyze walks the repository at path and builds a RepositoryAnalysis.
func (a *FSAnalyzer) Analyze(ctx context.Context, path string, opts Options) (*RepositoryAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.PathNotFound, "repository path does not exist: "+path)
		}
		return nil, errors.Wrap(errors.AnalysisFailed, "cannot stat repository path", err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.PathNotDirectory, "repository path is not a directory: "+path)
	}

	maxSize := opts.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = a.cfg.MaxFileSizeBytes
	}

	start := time.Now()
	result := &RepositoryAnalysis{
		ID:         uuid.New().String(),
		Path:       path,
		Name:       filepath.Base(path),
		AnalyzedAt: time.Now().UTC(),
	}

	langFiles := map[string]int{}
	totalDecisions := 0
	sourceLines := 0

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if p != path && a.skipDir(name, opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}

		lang := DetectLanguage(strings.ToLower(filepath.Ext(name)))
		if lang == "" {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > int64(maxSize) {
			return nil
		}

		source, err := os.ReadFile(p)
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(path, p)
		stats := a.analyzeSource(rel, string(source), lang, opts, result)

		result.TotalFiles++
		result.TotalLines += stats.lines
		result.FunctionCount += stats.functions
		result.ClassCount += stats.classes
		result.ImportCount += stats.imports
		totalDecisions += stats.decisions
		sourceLines += stats.lines
		langFiles[lang]++
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.AnalysisFailed, "repository walk aborted", walkErr)
	}

	result.Languages = rankedKeys(langFiles)
	result.Frameworks, result.Dependencies = detectManifests(path)
	if sourceLines > 0 {
		result.ComplexityScore = math.Round(float64(totalDecisions)/float64(sourceLines)*100*100) / 100
	}

	a.logger.Debug("Repository analyzed", map[string]interface{}{
		"path":     path,
		"files":    result.TotalFiles,
		"duration": time.Since(start).String(),
	})
	return result, nil
}

func (a *FSAnalyzer) skipDir(name string, opts Options) bool {
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range a.cfg.IgnoreDirs {
		if name == ignored {
			return true
		}
	}
	return false
}

type fileStats struct {
	lines     int
	functions int
	classes   int
	imports   int
	decisions int
}

// analyzeSource counts structure in one file and, in full mode, appends
// security and quality findings to result.
func (a *FSAnalyzer) analyzeSource(rel, source, lang string, opts Options, result *RepositoryAnalysis) fileStats {
	patterns, havePatterns := patternsForLanguage[lang]
	full := opts.Mode == ModeFull

	var stats fileStats
	for i, line := range strings.Split(source, "\n") {
		stats.lines++
		if havePatterns {
			if patterns.function.MatchString(line) {
				stats.functions++
			}
			if patterns.class.MatchString(line) {
				stats.classes++
			}
			if patterns.imports.MatchString(line) {
				stats.imports++
			}
		}
		stats.decisions += len(decisionPattern.FindAllString(line, -1))

		if !full {
			continue
		}
		for _, rule := range securityRules {
			if len(result.SecurityFindings) < maxFindingsPerKind && rule.pattern.MatchString(line) {
				result.SecurityFindings = append(result.SecurityFindings, Finding{
					File:     rel,
					Line:     i + 1,
					Kind:     rule.kind,
					Message:  rule.message,
					Severity: rule.severity,
				})
			}
		}
		for _, rule := range qualityRules {
			if len(result.QualityIssues) < maxFindingsPerKind && rule.pattern.MatchString(line) {
				result.QualityIssues = append(result.QualityIssues, Finding{
					File:     rel,
					Line:     i + 1,
					Kind:     rule.kind,
					Message:  rule.message,
					Severity: "info",
				})
			}
		}
		if len(line) > longLineThreshold && len(result.QualityIssues) < maxFindingsPerKind {
			result.QualityIssues = append(result.QualityIssues, Finding{
				File:     rel,
				Line:     i + 1,
				Kind:     "long-line",
				Message:  "line exceeds readable length",
				Severity: "info",
			})
		}
	}
	return stats
}

// rankedKeys orders languages by file count descending, ties alphabetical, so
// Languages is deterministic for equal inputs.
func rankedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
