package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repolens/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve the repolens HTTP API. Batch analysis streams NDJSON progress.

Endpoints:
  GET  /health
  POST /api/analyze
  POST /api/batch
  GET  /api/repositories
  GET  /api/search?q=...`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a := mustSetup()
	defer a.close()

	port := servePort
	if port <= 0 {
		port = a.cfg.Server.Port
	}
	addr := fmt.Sprintf(":%d", port)

	server := api.NewServer(addr, a.orch, a.ix, a.cfg.Batch, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		a.logger.Info("Signal received, shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fatalf("Shutdown error: %v", err)
		}
	}
}
