// Package config provides configuration loading for mockup using TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Model settings
type Model struct {
	Provider  string `json:"provider"` // "claude-api" or "claude-code"; empty = auto
	Name      string `json:"name"`     // model identifier for the API provider
	MaxTokens int    `json:"maxTokens"`
}

// Preview settings
type Preview struct {
	Listen     string `json:"listen"`     // address for the page server
	ChromePath string `json:"chromePath"` // Chrome binary (empty = auto-detect)
	Headless   bool   `json:"headless"`
}

// Store settings
type Store struct {
	Path string `json:"path"` // sqlite database location
}

// Config is the main configuration struct
type Config struct {
	Model   Model   `json:"model"`
	Preview Preview `json:"preview"`
	Store   Store   `json:"store"`
}

// Default returns the default configuration.
func Default() *Config {
	dir, _ := configDir()
	return &Config{
		Model: Model{
			Provider:  "",
			Name:      "",
			MaxTokens: 8192,
		},
		Preview: Preview{
			Listen:     "127.0.0.1:0",
			ChromePath: "",
			Headless:   false,
		},
		Store: Store{
			Path: filepath.Join(dir, "pages.db"),
		},
	}
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mockup"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir creates the configuration directory if it doesn't exist.
func EnsureDir() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	cfg := Default()

	configPath, err := ConfigPath()
	if err != nil {
		return cfg, nil // Return defaults if we can't determine path
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil // Return defaults if no user config
	}

	var user Config
	if _, err := toml.DecodeFile(configPath, &user); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	return merge(cfg, &user), nil
}

// merge layers user config on top of defaults. Only non-zero values from
// user config override.
func merge(defaults, user *Config) *Config {
	result := *defaults

	if user.Model.Provider != "" {
		result.Model.Provider = user.Model.Provider
	}
	if user.Model.Name != "" {
		result.Model.Name = user.Model.Name
	}
	if user.Model.MaxTokens != 0 {
		result.Model.MaxTokens = user.Model.MaxTokens
	}

	if user.Preview.Listen != "" {
		result.Preview.Listen = user.Preview.Listen
	}
	if user.Preview.ChromePath != "" {
		result.Preview.ChromePath = user.Preview.ChromePath
	}
	if user.Preview.Headless {
		result.Preview.Headless = true
	}

	if user.Store.Path != "" {
		result.Store.Path = user.Store.Path
	}

	return &result
}
