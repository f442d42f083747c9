package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"crucible/internal/sandbox"
)

type SandboxConfig struct {
	MaxExecutionSeconds float64  `mapstructure:"max_execution_seconds"`
	MaxOutputChars      int      `mapstructure:"max_output_chars"`
	AllowedImports      []string `mapstructure:"allowed_imports"`
	BlockedNames        []string `mapstructure:"blocked_names"`
	HTTPAllowlist       []string `mapstructure:"http_allowlist"`
}

type GeneratorConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	ProfilesDir string  `mapstructure:"profiles_dir"`
}

type ServerConfig struct {
	Port     int `mapstructure:"port"`
	Throttle int `mapstructure:"throttle"` // max concurrent executions
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads the configuration, layering an optional YAML file over
// built-in defaults. An empty path searches the working directory and
// ~/.crucible; a missing file there is fine, but an explicit path that
// cannot be read, an unparsable file, or values the sandbox could not
// enforce all abort startup.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("crucible")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.crucible")
	}

	home := os.Getenv("HOME")
	defaults := sandbox.DefaultPolicy()
	v.SetDefault("sandbox.max_execution_seconds", defaults.MaxExecutionTime.Seconds())
	v.SetDefault("sandbox.max_output_chars", defaults.MaxOutputChars)
	v.SetDefault("sandbox.allowed_imports", defaults.AllowedImports)
	v.SetDefault("sandbox.blocked_names", defaults.BlockedNames)
	v.SetDefault("sandbox.http_allowlist", []string{})
	v.SetDefault("generator.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.max_tokens", 1024)
	v.SetDefault("generator.temperature", 0.2)
	v.SetDefault("generator.profiles_dir", filepath.Join(home, ".crucible", "profiles"))
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.throttle", 16)
	v.SetDefault("storage.db_path", filepath.Join(home, ".crucible", "crucible.db"))
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand environment variables in the API key
	if strings.HasPrefix(cfg.Generator.APIKey, "${") && strings.HasSuffix(cfg.Generator.APIKey, "}") {
		cfg.Generator.APIKey = os.Getenv(cfg.Generator.APIKey[2 : len(cfg.Generator.APIKey)-1])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine could not enforce.
func (c *Config) Validate() error {
	if c.Sandbox.MaxExecutionSeconds <= 0 {
		return fmt.Errorf("sandbox.max_execution_seconds must be positive, got %g", c.Sandbox.MaxExecutionSeconds)
	}
	if c.Sandbox.MaxOutputChars <= 0 {
		return fmt.Errorf("sandbox.max_output_chars must be positive, got %d", c.Sandbox.MaxOutputChars)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.Throttle < 1 {
		return fmt.Errorf("server.throttle must be at least 1, got %d", c.Server.Throttle)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Policy converts the sandbox section into an execution policy.
func (c *Config) Policy() sandbox.Policy {
	return sandbox.Policy{
		AllowedImports:   c.Sandbox.AllowedImports,
		BlockedNames:     c.Sandbox.BlockedNames,
		MaxExecutionTime: time.Duration(c.Sandbox.MaxExecutionSeconds * float64(time.Second)),
		MaxOutputChars:   c.Sandbox.MaxOutputChars,
		HTTPAllowlist:    c.Sandbox.HTTPAllowlist,
	}
}
