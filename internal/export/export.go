// Package export renders analysis results as JSON, YAML, or Markdown for
// the CLI and HTTP surfaces.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"repolens/internal/analysis"
	"repolens/internal/batch"
	"repolens/internal/errors"
)

// Format selects an output rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", errors.New(errors.InvalidArgument, "unknown output format: "+s)
	}
}

// Render serializes v in the requested format. Markdown has dedicated
// layouts for single analyses and batch results; other values fall back to
// fenced JSON.
func Render(v interface{}, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", errors.Wrap(errors.InternalError, "json render failed", err)
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", errors.Wrap(errors.InternalError, "yaml render failed", err)
		}
		return string(data), nil
	case FormatMarkdown:
		return renderMarkdown(v)
	default:
		return "", errors.New(errors.InvalidArgument, "unknown output format: "+string(format))
	}
}

func renderMarkdown(v interface{}) (string, error) {
	switch t := v.(type) {
	case *analysis.RepositoryAnalysis:
		return analysisMarkdown(t), nil
	case analysis.RepositoryAnalysis:
		return analysisMarkdown(&t), nil
	case *batch.Result:
		return batchMarkdown(t), nil
	case batch.Result:
		return batchMarkdown(&t), nil
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", errors.Wrap(errors.InternalError, "markdown render failed", err)
		}
		return "```json\n" + string(data) + "\n```\n", nil
	}
}

func analysisMarkdown(a *analysis.RepositoryAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Name)
	fmt.Fprintf(&b, "Path: `%s`\n\n", a.Path)

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files | %d |\n", a.TotalFiles)
	fmt.Fprintf(&b, "| Lines | %d |\n", a.TotalLines)
	fmt.Fprintf(&b, "| Functions | %d |\n", a.FunctionCount)
	fmt.Fprintf(&b, "| Classes | %d |\n", a.ClassCount)
	fmt.Fprintf(&b, "| Imports | %d |\n", a.ImportCount)
	fmt.Fprintf(&b, "| Complexity | %.2f |\n\n", a.ComplexityScore)

	writeList(&b, "Languages", a.Languages)
	writeList(&b, "Frameworks", a.Frameworks)
	writeList(&b, "Dependencies", a.Dependencies)

	writeFindings(&b, "Security Findings", a.SecurityFindings)
	writeFindings(&b, "Quality Issues", a.QualityIssues)
	return b.String()
}

func batchMarkdown(r *batch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Batch %s\n\n", r.BatchID)
	fmt.Fprintf(&b, "%d repositories: %d completed, %d failed (%d%% done)\n\n",
		r.Status.Total, r.Status.Completed, r.Status.Failed, r.Status.Progress)

	for i := range r.Repositories {
		a := &r.Repositories[i]
		fmt.Fprintf(&b, "## %s\n\n", a.Name)
		fmt.Fprintf(&b, "`%s`", a.Path)
		if len(a.Languages) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(a.Languages, ", "))
		}
		b.WriteString("\n\n")
	}

	if ci := r.CombinedInsights; ci != nil {
		b.WriteString("## Combined Insights\n\n")
		writeList(&b, "Commonalities", ci.Commonalities)
		writeList(&b, "Differences", ci.Differences)
		writeList(&b, "Integration Opportunities", ci.IntegrationOpportunities)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeFindings(b *strings.Builder, title string, findings []analysis.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, f := range findings {
		fmt.Fprintf(b, "- **%s** `%s:%d` (%s): %s\n", f.Kind, f.File, f.Line, f.Severity, f.Message)
	}
	b.WriteString("\n")
}
