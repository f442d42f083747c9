package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crucible/internal/mcpserver"
	"crucible/internal/storage/sqlite"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the sandbox over the Model Context Protocol",
	Long: `Run an MCP server on stdio exposing execute_code, generate_code, and
sandbox_stats tools. Point an MCP-capable client at it:

  {"command": "crucible", "args": ["mcp"]}

Logs go to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	return mcpserver.New(eng, gen, store, logger).ServeStdio()
}
