package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"crucible/internal/llm"
	"crucible/internal/pipeline"
)

var (
	runAfterFlag bool
	repairsFlag  int
	outputFlag   string
)

var generateCmd = &cobra.Command{
	Use:     "generate <prompt>",
	Aliases: []string{"gen"},
	Short:   "Generate a snippet from a natural-language prompt",
	Long: `Ask the configured model to write a sandbox-ready snippet.

With --run the snippet is executed immediately; when it fails it is sent
back to the model with the error for up to --repairs fix rounds.

Examples:
  crucible generate "sum the numbers from 1 to 100"
  crucible generate --run "format today's date"
  crucible generate --run --repairs 2 "parse a csv of name,age pairs"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&runAfterFlag, "run", false, "Execute the generated snippet")
	generateCmd.Flags().IntVar(&repairsFlag, "repairs", 1, "Repair rounds after a failed --run (0 disables)")
	generateCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the snippet to a file instead of stdout")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	gen := newGenerator(cfg, logger)
	if !gen.Available() {
		return generatorUnavailable()
	}

	profile, err := resolveProfile(cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runAfterFlag {
		p := &pipeline.Pipeline{Gen: gen, Runner: eng, Log: logger}
		run, err := p.Run(ctx, args[0], profile, repairsFlag)
		if err != nil {
			return err
		}
		saveRunRecord(cfg, logger, run)

		fmt.Fprintf(os.Stderr, "// generated with %s\n%s\n\n", run.Model, run.Code)
		if run.Explanation != "" {
			fmt.Fprintf(os.Stderr, "%s\n\n", run.Explanation)
		}
		return printRun(run, false)
	}

	// Stream the model's response to stderr as it arrives; the
	// extracted snippet goes to stdout or the output file.
	g, err := gen.GenerateStream(ctx, llm.Request{
		Prompt:  args[0],
		Modules: eng.Policy().AllowedImports,
		Profile: profile,
	}, func(delta string) {
		fmt.Fprint(os.Stderr, delta)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	if outputFlag != "" {
		return os.WriteFile(outputFlag, []byte(g.Code+"\n"), 0o644)
	}
	fmt.Println(g.Code)
	return nil
}

// generatorUnavailable renders the missing-generator error with setup
// hints.
func generatorUnavailable() error {
	var b strings.Builder
	b.WriteString(llm.ErrUnavailable.Error())
	for _, s := range llm.UnavailableSuggestions {
		b.WriteString("\n  - " + s)
	}
	return errors.New(b.String())
}
