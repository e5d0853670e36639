package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the config file looked up in the working directory.
	ProjectConfigFile = "somi.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/somi"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Environment variables that override file settings.
const (
	EnvDB              = "SOMI_DB"
	EnvAddr            = "SOMI_ADDR"
	EnvPlannerProvider = "SOMI_PLANNER_PROVIDER"
	EnvPlannerModel    = "SOMI_PLANNER_MODEL"
	EnvPlannerEndpoint = "SOMI_PLANNER_ENDPOINT"
)

// Loader loads configuration with layered precedence.
type Loader struct {
	logger  *slog.Logger
	home    string
	workDir string
	getenv  func(string) string
}

// NewLoader creates a loader rooted at the user's home and working directories.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	wd, _ := os.Getwd()
	return &Loader{logger: logger, home: home, workDir: wd, getenv: os.Getenv}
}

// Load resolves configuration in order:
// 1. defaults
// 2. user config (~/.config/somi/config.yaml)
// 3. explicit path, or somi.yaml in the working directory
// 4. SOMI_* environment variables
//
// An explicit path that cannot be read is an error; missing implicit files
// are skipped.
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if l.home != "" {
		l.mergeFile(config, filepath.Join(l.home, UserConfigDir, UserConfigFile))
	}

	if explicit != "" {
		fileConfig, err := readLayer(explicit)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", explicit))
		config.Merge(fileConfig)
	} else if l.workDir != "" {
		l.mergeFile(config, filepath.Join(l.workDir, ProjectConfigFile))
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) mergeFile(config *Config, path string) {
	fileConfig, err := readLayer(path)
	if err == nil {
		l.logger.Debug("Loaded config", slog.String("path", path))
		config.Merge(fileConfig)
		return
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return
	}
	l.logger.Warn("Failed to load config", slog.String("path", path), slog.String("error", err.Error()))
}

func (l *Loader) applyEnv(config *Config) {
	set := func(name string, dst *string) {
		if v := l.getenv(name); v != "" {
			*dst = v
			l.logger.Debug("Config overridden from environment", slog.String("var", name))
		}
	}
	set(EnvDB, &config.DB)
	set(EnvAddr, &config.Server.Addr)
	set(EnvPlannerProvider, &config.Planner.Provider)
	set(EnvPlannerModel, &config.Planner.Model)
	set(EnvPlannerEndpoint, &config.Planner.Endpoint)
}

// EnsureUserConfig writes the default user config if none exists and
// returns its path.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := filepath.Join(l.home, UserConfigDir, UserConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", path))
	return path, nil
}
