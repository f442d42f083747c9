package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"crucible/internal/sandbox"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate snippets interactively",
	Long: `Start an interactive sandbox session. Every line runs in a fresh,
isolated guest under the configured policy; nothing carries over
between lines.

Type /help for commands, /quit to exit.`,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	pol := eng.Policy()
	fmt.Printf("crucible repl\n")
	fmt.Printf("modules: %s | limit: %gs | output cap: %d chars\n",
		strings.Join(pol.AllowedImports, ", "),
		pol.MaxExecutionTime.Seconds(), pol.MaxOutputChars)
	fmt.Printf("Each line runs in a fresh sandbox. /help for commands.\n\n")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mjs>\033[0m ",
		HistoryFile:     filepath.Join(os.TempDir(), "crucible_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Ctrl+C cancels the running snippet, not the repl. A Ctrl+C at the
	// prompt exits via readline.ErrInterrupt below.
	var reqCancel context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			if reqCancel != nil {
				reqCancel()
			}
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("bye")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := replCommand(input, eng); quit {
				return nil
			}
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		reqCancel = cancel
		res := eng.Execute(ctx, input)
		cancel()
		reqCancel = nil

		if res.Output != "" {
			fmt.Print(res.Output)
		}
		if res.Stderr != "" {
			fmt.Fprint(os.Stderr, res.Stderr)
		}
		if res.Truncated {
			fmt.Println("(output truncated)")
		}
		if !res.Success {
			fmt.Printf("\033[31m%s\033[0m\n", res.Error)
		}
	}
}

// replCommand handles slash commands; it reports whether to exit.
func replCommand(input string, eng *sandbox.Engine) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("bye")
		return true
	case "/policy":
		pol := eng.Policy()
		fmt.Printf("allowed imports: %s\n", strings.Join(pol.AllowedImports, ", "))
		fmt.Printf("blocked names:   %s\n", strings.Join(pol.BlockedNames, ", "))
		fmt.Printf("time limit:      %gs\n", pol.MaxExecutionTime.Seconds())
		fmt.Printf("output cap:      %d chars\n\n", pol.MaxOutputChars)
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help    - Show this help")
		fmt.Println("  /policy  - Show the active policy")
		fmt.Println("  /quit    - Exit")
		fmt.Println()
		fmt.Println("Anything else runs as a snippet in a fresh sandbox.")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return false
}
