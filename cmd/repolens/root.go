package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repolens/internal/analysis"
	"repolens/internal/batch"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/index"
	"repolens/internal/logging"
	"repolens/internal/storage"
	"repolens/internal/version"
)

var (
	// dataDirFlag is the CLI --data-dir flag value
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "repolens - repository analysis toolkit",
	Long: `repolens analyzes source repositories for languages, frameworks, structure
metrics, and security/quality findings. It keeps a local searchable index of
every analyzed repository and can analyze many repositories concurrently,
computing combined cross-repository insights.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("repolens version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Data directory for config, cache, and index (default: .repolens)")
}

// app bundles everything a command needs, wired from config.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *storage.DB
	orch   *batch.Orchestrator
	ix     *index.Index
}

// mustSetup loads config and wires the storage, cache, analyzer,
// orchestrator, and index. Exits on any failure.
func mustSetup() *app {
	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir = config.DefaultConfig().DataDir
	}

	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
	})

	db, err := storage.Open(dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	c, err := cache.New(db, logger, cfg.Cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache: %v\n", err)
		os.Exit(1)
	}

	analyzer := analysis.NewFSAnalyzer(cfg.Analysis, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		orch:   batch.NewOrchestrator(analyzer, c, logger, cfg.Insights),
		ix:     index.New(db, logger, cfg.Insights),
	}
}

func (a *app) close() {
	a.db.Close()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
