package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/depprop/internal/paths"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

// Config keys in config.yaml.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyFormat         = "format"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogDevelopment = "log_development"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# propctl configuration

# Snapshot store backend
backend: sqlite

# Snapshot data directory (overridden by --data-dir)
# data_dir:

# Output format: text, json or yaml (overridden by --format)
format: text

# Log level: debug, info, warn or error (--verbose forces debug)
log_level: warn
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Values missing from the file take defaults.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeDefaultConfig(filepath.Join(configDir, paths.ConfigFileName)); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, snapshot.BackendSQLite)
	v.SetDefault(cfgKeyFormat, formatText)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetConfigFile(filepath.Join(configDir, paths.ConfigFileName))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeDefaultConfig creates the default config.yaml unless a file exists.
func writeDefaultConfig(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// storeConfig returns the snapshot store config for the resolved data dir.
func (a *app) storeConfig() (snapshot.Config, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return snapshot.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return snapshot.Config{
		Backend: a.config.GetString(cfgKeyBackend),
		DataDir: dataDir,
	}, nil
}
