// ABOUTME: Configuration loading and parsing for the chat engine client
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the chat backend endpoints
type ServerConfig struct {
	APIBase string `yaml:"api_base"` // REST base URL, e.g. http://localhost:5000
	WSURL   string `yaml:"ws_url"`   // push channel URL, e.g. ws://localhost:5000/api/chat/push
	Token   string `yaml:"token"`    // optional bearer token attached to requests
}

// ChatConfig holds engine timing configuration
type ChatConfig struct {
	TypingExpiry time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TypingExpiryRaw string `yaml:"typing_expiry"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration pointing at a local development backend.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			APIBase: "http://localhost:5000",
			WSURL:   "ws://localhost:5000/api/chat/push",
		},
		Chat: ChatConfig{
			TypingExpiry: 4 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
func (c *Config) Validate() error {
	if c.Server.APIBase == "" {
		return fmt.Errorf("server.api_base is required")
	}
	if c.Server.WSURL == "" {
		return fmt.Errorf("server.ws_url is required")
	}
	if c.Chat.TypingExpiry < 0 {
		return fmt.Errorf("chat.typing_expiry must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Chat.TypingExpiryRaw != "" {
		d, err := time.ParseDuration(cfg.Chat.TypingExpiryRaw)
		if err != nil {
			return fmt.Errorf("parsing typing_expiry %q: %w", cfg.Chat.TypingExpiryRaw, err)
		}
		cfg.Chat.TypingExpiry = d
	}
	return nil
}
