package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crucible/internal/llm"
	"crucible/internal/server"
	"crucible/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the crucible web server",
	Long: `Start the HTTP server with the REST API, the WebSocket endpoint, and
the browser playground.

The playground is served at the root URL. API endpoints live under /api.

Examples:
  crucible serve
  crucible serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	gen := newGenerator(cfg, logger)
	if !gen.Available() {
		logger.Warn().Msg("no generator configured; generation endpoints will answer 503")
	}

	profiles, err := llm.LoadProfiles(cfg.Generator.ProfilesDir)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	srv := server.New(cfg, eng, gen, store, profiles, logger)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}
