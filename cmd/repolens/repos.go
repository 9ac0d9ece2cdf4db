package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repolens/internal/export"
)

var (
	reposFormat  string
	reposSimilar string
	reposSuggest bool
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List indexed repositories",
	Long: `List every repository in the local index, find repositories similar to a
given one, or suggest frontend/backend combinations.

Examples:
  repolens repos
  repolens repos --similar ~/src/webapp
  repolens repos --suggest`,
	Args: cobra.NoArgs,
	Run:  runRepos,
}

func init() {
	reposCmd.Flags().StringVar(&reposFormat, "format", "json", "Output format (json, yaml, markdown)")
	reposCmd.Flags().StringVar(&reposSimilar, "similar", "", "Rank repositories similar to this path")
	reposCmd.Flags().BoolVar(&reposSuggest, "suggest", false, "Suggest frontend/backend pairings")
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, args []string) {
	format, err := export.ParseFormat(reposFormat)
	if err != nil {
		fatalf("Error: %v", err)
	}

	a := mustSetup()
	defer a.close()

	var result interface{}
	switch {
	case reposSimilar != "":
		result, err = a.ix.Similar(reposSimilar)
	case reposSuggest:
		result, err = a.ix.Suggestions()
	default:
		result, err = a.ix.List()
	}
	if err != nil {
		fatalf("Error reading repository index: %v", err)
	}

	out, err := export.Render(result, format)
	if err != nil {
		fatalf("Error formatting output: %v", err)
	}
	fmt.Print(out)
}
