// Package analysis performs lightweight static analysis of a repository:
// language detection, function/class/import counts, a complexity heuristic,
// manifest-based framework detection, and security/quality pattern matching.
package analysis

import (
	"context"
	"time"
)

// Options controls how a repository is analyzed. The orchestrator passes the
// same Options value through caching and deduplication, so it must serialize
// deterministically.
type Options struct {
	// Mode is "quick" (counts and manifests only) or "full" (adds
	// security/quality pattern matching)
	Mode string `json:"mode"`

	// MaxFileSizeBytes skips files larger than this (0 = config default)
	MaxFileSizeBytes int `json:"maxFileSizeBytes,omitempty"`

	// IncludeHidden analyzes dotfiles and dot-directories
	IncludeHidden bool `json:"includeHidden,omitempty"`
}

const (
	ModeQuick = "quick"
	ModeFull  = "full"
)

// Finding is a single security or quality match in a file.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "info", "warning", "critical"
}

// RepositoryAnalysis is the result of analyzing a single repository.
type RepositoryAnalysis struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	AnalyzedAt time.Time `json:"analyzedAt"`

	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Dependencies []string `json:"dependencies,omitempty"`

	TotalFiles    int `json:"totalFiles"`
	TotalLines    int `json:"totalLines"`
	FunctionCount int `json:"functionCount"`
	ClassCount    int `json:"classCount"`
	ImportCount   int `json:"importCount"`

	// ComplexityScore is the decision-point density across analyzed source:
	// decision keywords per 100 lines.
	ComplexityScore float64 `json:"complexityScore"`

	SecurityFindings []Finding `json:"securityFindings,omitempty"`
	QualityIssues    []Finding `json:"qualityIssues,omitempty"`
}

// Analyzer produces a RepositoryAnalysis for a path. The batch orchestrator
// depends only on this interface; failures are caught per task.
type Analyzer interface {
	Analyze(ctx context.Context, path string, opts Options) (*RepositoryAnalysis, error)
}
