package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repolens/internal/export"
)

var searchFormat string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the repository index",
	Long: `Search indexed repositories by name, language, or framework.
Matching is case-insensitive substring.

Examples:
  repolens search python
  repolens search react --format=markdown`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFormat, "format", "json", "Output format (json, yaml, markdown)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	format, err := export.ParseFormat(searchFormat)
	if err != nil {
		fatalf("Error: %v", err)
	}

	a := mustSetup()
	defer a.close()

	results, err := a.ix.Search(args[0])
	if err != nil {
		fatalf("Error searching repositories: %v", err)
	}

	out, err := export.Render(results, format)
	if err != nil {
		fatalf("Error formatting output: %v", err)
	}
	fmt.Print(out)
}
