package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crucible/internal/config"
	"crucible/internal/pipeline"
	"crucible/internal/storage"
	"crucible/internal/storage/sqlite"
)

var (
	codeFlag   string
	jsonFlag   bool
	noSaveFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Execute a snippet in the sandbox",
	Long: `Execute a script snippet under the configured policy and print what it
wrote. The snippet comes from a file argument, --code, or stdin.

The process exits 0 when the snippet succeeds and 1 when it is rejected,
fails, or times out.

Examples:
  crucible run script.js
  crucible run --code 'print(2 + 2)'
  echo 'print("hi")' | crucible run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&codeFlag, "code", "c", "", "Inline snippet to execute")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the full run record as JSON")
	runCmd.Flags().BoolVar(&noSaveFlag, "no-save", false, "Skip recording the run in history")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	source, err := readSource(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(source) == "" {
		return errors.New("nothing to execute")
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	// Ctrl+C interrupts the snippet
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := eng.Execute(ctx, source)
	run := pipeline.NewRun(storage.KindExecute, "", "", source, res)

	if !noSaveFlag {
		saveRunRecord(cfg, logger, run)
	}

	return printRun(run, jsonFlag)
}

// readSource picks the snippet source: --code wins, then a file
// argument, then stdin. "-" also means stdin.
func readSource(args []string) (string, error) {
	if codeFlag != "" {
		return codeFlag, nil
	}
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// saveRunRecord appends to history; failures only warn.
func saveRunRecord(cfg *config.Config, logger zerolog.Logger, run *storage.Run) {
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("opening history store")
		return
	}
	defer store.Close()

	if err := store.CreateRun(context.Background(), run); err != nil {
		logger.Warn().Err(err).Msg("recording run")
	}
}

// printRun renders a finished run to the terminal. A failed run comes
// back as an error so the process exits nonzero.
func printRun(run *storage.Run, asJSON bool) error {
	if asJSON {
		data, err := storage.ExportJSON(run)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		if !run.Success {
			return errors.New("run failed")
		}
		return nil
	}

	fmt.Print(run.Output)
	if run.Stderr != "" {
		fmt.Fprint(os.Stderr, run.Stderr)
	}
	if run.Truncated {
		fmt.Fprintln(os.Stderr, "(output truncated)")
	}
	if !run.Success {
		return errors.New(run.Error)
	}
	return nil
}
