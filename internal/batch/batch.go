// Package batch orchestrates multi-repository analyses: bounded-concurrency
// execution through the task queue, cache consultation, deduplication of
// identical concurrent batches, progress forwarding, and combined-insights
// aggregation.
package batch

import (
	"time"

	"repolens/internal/analysis"
	"repolens/internal/insights"
)

// Status is the aggregate progress snapshot of a batch. The counters always
// sum to Total; Completed and Failed never decrease.
type Status struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Progress   int `json:"progress"`
}

// Result is the final (and, while running, accumulating) output of a batch.
// Repositories holds successful analyses in completion order, which under
// concurrency may differ from submission order.
type Result struct {
	BatchID          string                        `json:"batchId"`
	Repositories     []analysis.RepositoryAnalysis `json:"repositories"`
	CombinedInsights *insights.Insights            `json:"combinedInsights,omitempty"`
	CreatedAt        time.Time                     `json:"createdAt"`
	ProcessingTimeMS int64                         `json:"processingTime"`
	Status           Status                        `json:"status"`
}

// Progress is delivered to the caller's progress callback on every queue
// progress event. CurrentRepositories lists the paths currently being
// analyzed.
type Progress struct {
	BatchID             string   `json:"batchId"`
	Status              Status   `json:"status"`
	CurrentRepositories []string `json:"currentRepository"`
}

// ProgressFunc receives progress updates. It is called synchronously from
// queue event handling and never after AnalyzeBatch returns, so it must not
// block.
type ProgressFunc func(Progress)
