// Package insights derives cross-repository commonality, difference, and
// integration-opportunity summaries from a set of completed analyses.
package insights

import (
	"strings"

	"repolens/internal/analysis"
)

// Insights is the combined cross-repository summary attached to a batch
// result when at least two repositories were analyzed successfully.
type Insights struct {
	Commonalities            []string `json:"commonalities"`
	Differences              []string `json:"differences"`
	IntegrationOpportunities []string `json:"integrationOpportunities"`
}

// Compute derives insights from analyses. Deterministic: differences follow
// the input order, comma lists follow each analysis's own array order.
// Frontend/backend framework sets are matched case-insensitively.
func Compute(analyses []analysis.RepositoryAnalysis, frontend, backend []string) Insights {
	var out Insights

	commonLanguages := intersectAll(analyses, func(a analysis.RepositoryAnalysis) []string {
		return a.Languages
	})
	commonFrameworks := intersectAll(analyses, func(a analysis.RepositoryAnalysis) []string {
		return a.Frameworks
	})

	if len(commonLanguages) > 0 {
		out.Commonalities = append(out.Commonalities,
			"All repositories use the following languages: "+strings.Join(commonLanguages, ", "))
	} else {
		out.Commonalities = append(out.Commonalities,
			"No common languages found across all repositories")
	}
	if len(commonFrameworks) > 0 {
		out.Commonalities = append(out.Commonalities,
			"All repositories use the following frameworks: "+strings.Join(commonFrameworks, ", "))
	} else {
		out.Commonalities = append(out.Commonalities,
			"No common frameworks found across all repositories")
	}

	for _, a := range analyses {
		if unique := subtract(a.Languages, commonLanguages); len(unique) > 0 {
			out.Differences = append(out.Differences,
				a.Name+" uniquely uses: "+strings.Join(unique, ", "))
		}
		if unique := subtract(a.Frameworks, commonFrameworks); len(unique) > 0 {
			out.Differences = append(out.Differences,
				a.Name+" uniquely uses frameworks: "+strings.Join(unique, ", "))
		}
	}

	if len(commonLanguages) > 0 || len(commonFrameworks) > 0 {
		out.IntegrationOpportunities = append(out.IntegrationOpportunities,
			"Repositories share common technologies which could facilitate integration")
	}
	if anyUsesFrom(analyses, frontend) && anyUsesFrom(analyses, backend) {
		out.IntegrationOpportunities = append(out.IntegrationOpportunities,
			"Potential for frontend-backend integration detected")
	}

	return out
}

// intersectAll returns the values present in every analysis's set, ordered by
// the first analysis's array order.
func intersectAll(analyses []analysis.RepositoryAnalysis, get func(analysis.RepositoryAnalysis) []string) []string {
	if len(analyses) == 0 {
		return nil
	}

	var common []string
	for _, candidate := range get(analyses[0]) {
		inAll := true
		for _, a := range analyses[1:] {
			if !containsFold(get(a), candidate) {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, candidate)
		}
	}
	return common
}

// subtract returns items from set not present in remove, preserving order.
func subtract(set, remove []string) []string {
	var out []string
	for _, item := range set {
		if !containsFold(remove, item) {
			out = append(out, item)
		}
	}
	return out
}

// anyUsesFrom reports whether any analysis's frameworks intersect the given
// framework set.
func anyUsesFrom(analyses []analysis.RepositoryAnalysis, set []string) bool {
	for _, a := range analyses {
		for _, fw := range a.Frameworks {
			if containsFold(set, fw) {
				return true
			}
		}
	}
	return false
}

func containsFold(set []string, value string) bool {
	for _, item := range set {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
