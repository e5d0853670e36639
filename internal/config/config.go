// Package config provides layered YAML configuration for somi.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete somi configuration.
type Config struct {
	DB      string        `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Planner PlannerConfig `yaml:"planner"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Tokens maps bearer tokens to user ids.
	Tokens map[string]string `yaml:"tokens"`
}

// PlannerConfig configures the generative planner. An empty provider
// disables it and every flow is built algorithmically.
type PlannerConfig struct {
	// Provider is "ollama", "openai" or empty.
	Provider string `yaml:"provider"`
	// Endpoint overrides the provider's base URL.
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	// Timeout bounds the wait before falling back to the algorithmic path.
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

// SessionConfig configures playback.
type SessionConfig struct {
	MusicLevel float64 `yaml:"music_level"`
}

// Enabled reports whether a planner provider is configured.
func (p PlannerConfig) Enabled() bool {
	return p.Provider != ""
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		DB: defaultDBPath(),
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Planner: PlannerConfig{
			Model:       "llama3.1:8b",
			APIKeyEnv:   "OPENAI_API_KEY",
			Timeout:     8 * time.Second,
			Temperature: 0.4,
		},
		Session: SessionConfig{
			MusicLevel: 0.6,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "somi.db"
	}
	return filepath.Join(home, ".somi", "somi.db")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Planner.Provider {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("planner.provider %q is invalid (valid: ollama, openai, or empty)", c.Planner.Provider)
	}
	if c.Planner.Enabled() && c.Planner.Model == "" {
		return fmt.Errorf("planner.model is required when a provider is set")
	}
	if c.Planner.Timeout <= 0 {
		return fmt.Errorf("planner.timeout must be positive")
	}
	if c.Planner.Temperature < 0 || c.Planner.Temperature > 2 {
		return fmt.Errorf("planner.temperature must be between 0 and 2")
	}
	if c.Session.MusicLevel < 0 || c.Session.MusicLevel > 1 {
		return fmt.Errorf("session.music_level must be between 0 and 1")
	}
	for token, user := range c.Server.Tokens {
		if token == "" || user == "" {
			return fmt.Errorf("server.tokens entries need a token and a user id")
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// readLayer decodes a file onto a zero Config so Merge only sees the keys
// the file sets.
func readLayer(path string) (*Config, error) {
	config := &Config{}
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge copies the non-zero values of other into c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.DB != "" {
		c.DB = other.DB
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if len(other.Server.Tokens) > 0 {
		if c.Server.Tokens == nil {
			c.Server.Tokens = make(map[string]string, len(other.Server.Tokens))
		}
		for token, user := range other.Server.Tokens {
			c.Server.Tokens[token] = user
		}
	}

	if other.Planner.Provider != "" {
		c.Planner.Provider = other.Planner.Provider
	}
	if other.Planner.Endpoint != "" {
		c.Planner.Endpoint = other.Planner.Endpoint
	}
	if other.Planner.Model != "" {
		c.Planner.Model = other.Planner.Model
	}
	if other.Planner.APIKeyEnv != "" {
		c.Planner.APIKeyEnv = other.Planner.APIKeyEnv
	}
	if other.Planner.Timeout != 0 {
		c.Planner.Timeout = other.Planner.Timeout
	}
	if other.Planner.Temperature != 0 {
		c.Planner.Temperature = other.Planner.Temperature
	}

	if other.Session.MusicLevel != 0 {
		c.Session.MusicLevel = other.Session.MusicLevel
	}
}
