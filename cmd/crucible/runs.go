package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crucible/internal/storage"
	"crucible/internal/storage/sqlite"
)

var (
	kindFilter   string
	limitFlag    int
	exportFormat string
	exportOutput string
	forceFlag    bool
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"history"},
	Short:   "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded runs",
	RunE:  runRunsStats,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd, runsExportCmd, runsStatsCmd)

	runsListCmd.Flags().StringVar(&kindFilter, "kind", "", "Filter by kind (execute, generate)")
	runsListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max runs to show")

	runsExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	runsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	runsDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func openStore() (storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Storage.DBPath)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.RunListOptions{
		Kind:  storage.RunKind(kindFilter),
		Limit: limitFlag,
	}

	runs, err := store.ListRuns(context.Background(), opts)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-10s %-9s %-3s %-44s %s\n", "ID", "KIND", "OK", "CODE", "WHEN")
	fmt.Println(strings.Repeat("─", 85))

	for _, run := range runs {
		ok := "✓"
		if !run.Success {
			ok = "✗"
		}
		fmt.Printf("%-10s %-9s %-3s %-44s %s\n",
			run.ID[:8], run.Kind, ok,
			truncate(firstLine(run.Code), 42), timeAgo(run.CreatedAt))
	}

	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Kind:     %s\n", run.Kind)
	if run.Prompt != "" {
		fmt.Printf("Prompt:   %s\n", run.Prompt)
	}
	if run.Model != "" {
		fmt.Printf("Model:    %s\n", run.Model)
	}
	fmt.Printf("Success:  %t\n", run.Success)
	fmt.Printf("Duration: %.3fs\n", run.ExecutionTime)
	fmt.Printf("Created:  %s\n", run.CreatedAt.Format(time.RFC3339))

	fmt.Println("\nCode:")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(run.Code)

	if run.Explanation != "" {
		fmt.Println("\nExplanation:")
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(run.Explanation)
	}
	if run.Output != "" {
		fmt.Println("\nOutput:")
		fmt.Println(strings.Repeat("─", 60))
		fmt.Print(run.Output)
	}
	if run.Stderr != "" {
		fmt.Println("\nStderr:")
		fmt.Println(strings.Repeat("─", 60))
		fmt.Print(run.Stderr)
	}
	if run.Truncated {
		fmt.Println("(output truncated)")
	}
	if run.Error != "" {
		fmt.Printf("\nError: \033[31m%s\033[0m\n", run.Error)
	}

	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete run %s - %q? [y/N] ", run.ID[:8], truncate(firstLine(run.Code), 40))
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", run.ID[:8])
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(run)
		if err != nil {
			return err
		}
		output = string(data)
	default:
		output = storage.ExportMarkdown(run)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func runRunsStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Total runs:     %d\n", stats.TotalRuns)
	if stats.TotalRuns > 0 {
		fmt.Printf("Succeeded:      %d (%.0f%%)\n", stats.Succeeded,
			100*float64(stats.Succeeded)/float64(stats.TotalRuns))
	} else {
		fmt.Printf("Succeeded:      0\n")
	}
	fmt.Printf("Failed:         %d\n", stats.Failed)
	fmt.Printf("Generated:      %d\n", stats.Generated)
	fmt.Printf("Avg execution:  %.3fs\n", stats.AvgSeconds)

	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
