package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"repolens/internal/analysis"
	"repolens/internal/export"
)

var (
	analyzeMode   string
	analyzeHidden bool
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Analyze a single repository",
	Long: `Analyze one repository: languages, frameworks, structure counts, and in
full mode security/quality findings. The result is cached and added to the
local repository index.

Examples:
  repolens analyze .
  repolens analyze ~/src/webapp --mode=full
  repolens analyze ~/src/webapp --format=markdown`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", analysis.ModeQuick, "Analysis mode (quick, full)")
	analyzeCmd.Flags().BoolVar(&analyzeHidden, "include-hidden", false, "Analyze dotfiles and dot-directories")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format (json, yaml, markdown)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	format, err := export.ParseFormat(analyzeFormat)
	if err != nil {
		fatalf("Error: %v", err)
	}

	a := mustSetup()
	defer a.close()

	opts := analysis.Options{Mode: analyzeMode, IncludeHidden: analyzeHidden}
	result, err := a.orch.AnalyzeOne(context.Background(), args[0], opts)
	if err != nil {
		fatalf("Error analyzing repository: %v", err)
	}

	if err := a.ix.Add(result); err != nil {
		a.logger.Warn("Failed to index analysis", map[string]interface{}{
			"path":  args[0],
			"error": err.Error(),
		})
	}

	out, err := export.Render(result, format)
	if err != nil {
		fatalf("Error formatting output: %v", err)
	}
	fmt.Print(out)
}
