package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"repolens/internal/analysis"
	"repolens/internal/batch"
	"repolens/internal/export"
)

var (
	batchConcurrency int
	batchSequential  bool
	batchMode        string
	batchFormat      string
	batchProgress    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Analyze multiple repositories",
	Long: `Analyze several repositories with bounded concurrency and compute combined
insights across them: shared languages/frameworks, per-repository unique
technologies, and integration opportunities.

A single repository failing does not abort the batch; it is reported in the
final status counts.

Examples:
  repolens batch ~/src/webapp ~/src/api
  repolens batch ~/src/* --concurrency=5 --mode=full
  repolens batch ~/src/webapp ~/src/api --sequential`,
	Args: cobra.MinimumNArgs(1),
	Run:  runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Max analyses in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchSequential, "sequential", false, "Analyze one repository at a time, in order")
	batchCmd.Flags().StringVar(&batchMode, "mode", analysis.ModeQuick, "Analysis mode (quick, full)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "Output format (json, yaml, markdown)")
	batchCmd.Flags().BoolVar(&batchProgress, "progress", true, "Print progress to stderr")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	format, err := export.ParseFormat(batchFormat)
	if err != nil {
		fatalf("Error: %v", err)
	}

	a := mustSetup()
	defer a.close()

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Batch.DefaultConcurrency
	}
	if concurrency > a.cfg.Batch.MaxConcurrency {
		concurrency = a.cfg.Batch.MaxConcurrency
	}

	var onProgress batch.ProgressFunc
	if batchProgress {
		onProgress = func(p batch.Progress) {
			fmt.Fprintf(os.Stderr, "\r%d/%d done (%d%%), running: %s",
				p.Status.Completed+p.Status.Failed, p.Status.Total,
				p.Status.Progress, strings.Join(p.CurrentRepositories, ", "))
		}
	}

	opts := analysis.Options{Mode: batchMode}
	ctx := context.Background()

	var result *batch.Result
	if batchSequential {
		result, err = a.orch.AnalyzeSequential(ctx, args, opts, onProgress)
	} else {
		result, err = a.orch.AnalyzeBatch(ctx, args, opts, concurrency, onProgress)
	}
	if batchProgress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fatalf("Error running batch: %v", err)
	}

	for i := range result.Repositories {
		if err := a.ix.Add(&result.Repositories[i]); err != nil {
			a.logger.Warn("Failed to index analysis", map[string]interface{}{
				"path":  result.Repositories[i].Path,
				"error": err.Error(),
			})
		}
	}

	out, err := export.Render(result, format)
	if err != nil {
		fatalf("Error formatting output: %v", err)
	}
	fmt.Print(out)
}
