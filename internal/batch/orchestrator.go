package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"repolens/internal/analysis"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/dedup"
	"repolens/internal/errors"
	"repolens/internal/insights"
	"repolens/internal/logging"
	"repolens/internal/queue"
)

// Orchestrator runs repository analyses in batches. A single orchestrator is
// shared by all callers so that its deduplication gate can coalesce identical
// concurrent batch requests system-wide.
type Orchestrator struct {
	analyzer analysis.Analyzer
	cache    *cache.Cache
	logger   *logging.Logger
	insights config.InsightsConfig
	group    *dedup.Group[*Result]
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(analyzer analysis.Analyzer, c *cache.Cache, logger *logging.Logger, insightsCfg config.InsightsConfig) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		cache:    c,
		logger:   logger,
		insights: insightsCfg,
		group:    dedup.NewGroup[*Result](),
	}
}

// AnalyzeBatch analyzes the given repository paths with at most concurrency
// analyses in flight. A single repository's failure only increments
// Status.Failed; the call errors only on invalid arguments or infrastructure
// failure (including context cancellation).
//
// Concurrent calls with an identical (paths, options) pair share one
// execution and receive the same Result.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, paths []string, opts analysis.Options, concurrency int, onProgress ProgressFunc) (*Result, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.InvalidArgument, "no repository paths given")
	}
	if concurrency < 1 {
		return nil, errors.New(errors.InvalidArgument, "concurrency must be >= 1")
	}

	key := dedup.Key(paths, opts)
	return o.group.Do(ctx, key, func() (*Result, error) {
		return o.runBatch(ctx, paths, opts, concurrency, onProgress)
	})
}

func (o *Orchestrator) runBatch(ctx context.Context, paths []string, opts analysis.Options, concurrency int, onProgress ProgressFunc) (*Result, error) {
	// Cached batches short-circuit: no queue work, no progress events.
	var cached Result
	if o.cache.GetBatch(paths, opts, &cached) {
		o.logger.Debug("Batch served from cache", map[string]interface{}{
			"batchId": cached.BatchID,
			"repos":   len(paths),
		})
		return &cached, nil
	}

	start := time.Now()
	result := &Result{
		BatchID:   uuid.New().String(),
		CreatedAt: start.UTC(),
		Status: Status{
			Total:   len(paths),
			Pending: len(paths),
		},
	}

	// Queue events are delivered synchronously and in order, so these
	// handlers mutate result and running without any extra locking.
	running := map[string]bool{}
	listener := queue.Listener{
		OnStarted: func(task queue.Task) {
			running[task.Data] = true
		},
		OnCompleted: func(task queue.Task) {
			delete(running, task.Data)
			if a, ok := task.Result.(*analysis.RepositoryAnalysis); ok {
				result.Repositories = append(result.Repositories, *a)
			}
		},
		OnFailed: func(task queue.Task) {
			delete(running, task.Data)
			o.logger.Warn("Repository analysis failed", map[string]interface{}{
				"batchId": result.BatchID,
				"path":    task.Data,
				"error":   task.Err.Error(),
			})
		},
		OnProgress: func(snap queue.Snapshot) {
			result.Status = statusFromSnapshot(snap)
			if onProgress != nil {
				onProgress(Progress{
					BatchID:             result.BatchID,
					Status:              result.Status,
					CurrentRepositories: orderedRunning(paths, running),
				})
			}
		},
	}

	q := queue.New(concurrency, o.workerFunc(opts), listener)
	o.logger.Info("Starting batch analysis", map[string]interface{}{
		"batchId":     result.BatchID,
		"repos":       len(paths),
		"concurrency": q.Concurrency(),
	})
	for i, path := range paths {
		if err := q.Enqueue(fmt.Sprintf("%s-%d", result.BatchID, i), path); err != nil {
			return nil, err
		}
	}
	q.Start(ctx)

	if err := q.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.InternalError, "batch interrupted", err)
	}

	o.finalize(result, paths, opts, start)
	return result, nil
}

// AnalyzeSequential processes paths strictly one at a time. Output shapes are
// identical to AnalyzeBatch; completion order always equals submission order.
func (o *Orchestrator) AnalyzeSequential(ctx context.Context, paths []string, opts analysis.Options, onProgress ProgressFunc) (*Result, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.InvalidArgument, "no repository paths given")
	}

	key := dedup.Key(paths, opts)
	return o.group.Do(ctx, key, func() (*Result, error) {
		var cached Result
		if o.cache.GetBatch(paths, opts, &cached) {
			return &cached, nil
		}

		start := time.Now()
		result := &Result{
			BatchID:   uuid.New().String(),
			CreatedAt: start.UTC(),
			Status: Status{
				Total:   len(paths),
				Pending: len(paths),
			},
		}

		worker := o.workerFunc(opts)
		report := func(current []string) {
			if onProgress != nil {
				onProgress(Progress{
					BatchID:             result.BatchID,
					Status:              result.Status,
					CurrentRepositories: current,
				})
			}
		}

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(errors.InternalError, "batch interrupted", err)
			}

			result.Status.Pending--
			result.Status.InProgress = 1
			report([]string{path})

			value, err := worker(ctx, path, path)
			result.Status.InProgress = 0
			if err != nil {
				result.Status.Failed++
			} else if a, ok := value.(*analysis.RepositoryAnalysis); ok {
				result.Status.Completed++
				result.Repositories = append(result.Repositories, *a)
			}
			settled := result.Status.Completed + result.Status.Failed
			result.Status.Progress = int(math.Round(100 * float64(settled) / float64(result.Status.Total)))
			report([]string{})
		}

		o.finalize(result, paths, opts, start)
		return result, nil
	})
}

// AnalyzeOne analyzes a single repository with the same caching as batch
// workers.
func (o *Orchestrator) AnalyzeOne(ctx context.Context, path string, opts analysis.Options) (*analysis.RepositoryAnalysis, error) {
	if path == "" {
		return nil, errors.New(errors.InvalidArgument, "no repository path given")
	}
	result, err := o.workerFunc(opts)(ctx, path, path)
	if err != nil {
		return nil, err
	}
	return result.(*analysis.RepositoryAnalysis), nil
}

// workerFunc builds the per-repository worker: cache read, analysis, cache
// write.
func (o *Orchestrator) workerFunc(opts analysis.Options) queue.WorkerFunc {
	return func(ctx context.Context, id string, path string) (interface{}, error) {
		if hit := o.cache.GetAnalysis(path, opts); hit != nil {
			return hit, nil
		}

		a, err := o.analyzer.Analyze(ctx, path, opts)
		if err != nil {
			return nil, err
		}

		o.cache.SetAnalysis(path, opts, a)
		return a, nil
	}
}

// finalize attaches combined insights, stamps the processing time, and writes
// the batch cache. A cache write failure is logged but never discards the
// computed result.
func (o *Orchestrator) finalize(result *Result, paths []string, opts analysis.Options, start time.Time) {
	if len(result.Repositories) >= 2 {
		combined := insights.Compute(result.Repositories,
			o.insights.FrontendFrameworks, o.insights.BackendFrameworks)
		result.CombinedInsights = &combined
	}
	result.ProcessingTimeMS = time.Since(start).Milliseconds()

	if err := o.cache.SetBatch(paths, opts, result); err != nil {
		o.logger.Warn("Batch cache write failed", map[string]interface{}{
			"batchId": result.BatchID,
			"error":   err.Error(),
		})
	}

	o.logger.Info("Batch analysis finished", map[string]interface{}{
		"batchId":   result.BatchID,
		"completed": result.Status.Completed,
		"failed":    result.Status.Failed,
		"elapsedMs": result.ProcessingTimeMS,
	})
}

func statusFromSnapshot(snap queue.Snapshot) Status {
	return Status{
		Total:      snap.Total,
		Completed:  snap.Completed,
		Failed:     snap.Failed,
		InProgress: snap.Running,
		Pending:    snap.Pending,
		Progress:   snap.Progress,
	}
}

// orderedRunning returns the running path set in submission order, so
// progress payloads are deterministic.
func orderedRunning(paths []string, running map[string]bool) []string {
	out := make([]string, 0, len(running))
	for _, p := range paths {
		if running[p] {
			out = append(out, p)
		}
	}
	return out
}
