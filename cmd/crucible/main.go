package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crucible/internal/config"
	"crucible/internal/llm"
	"crucible/internal/sandbox"
)

var (
	configFlag  string
	profileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - Sandboxed script execution engine",
	Long: `Crucible runs short untrusted script snippets inside a locked-down
in-process sandbox: curated builtins, an import allow-list, a bounded
output buffer, and a hard deadline. A configured model can write the
snippets for you.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: crucible.yaml in . or ~/.crucible)")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Generation profile to use")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(level)
}

func newEngine(cfg *config.Config, logger zerolog.Logger) (*sandbox.Engine, error) {
	eng, err := sandbox.New(cfg.Policy(), nil, logger)
	if err != nil {
		return nil, fmt.Errorf("building sandbox: %w", err)
	}
	return eng, nil
}

func newGenerator(cfg *config.Config, logger zerolog.Logger) llm.Client {
	return llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Logger:      logger,
	})
}

// resolveProfile turns --profile into a loaded profile, nil when unset.
func resolveProfile(cfg *config.Config) (*llm.Profile, error) {
	if profileFlag == "" {
		return nil, nil
	}
	profiles, err := llm.LoadProfiles(cfg.Generator.ProfilesDir)
	if err != nil {
		return nil, err
	}
	p, ok := profiles[profileFlag]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (looked in %s)", profileFlag, cfg.Generator.ProfilesDir)
	}
	return p, nil
}
