// Package paths resolves configuration and snapshot data directory locations.
// Every resolver follows the same precedence: command line flag, then the
// config file (data only), then the environment, then the platform default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "depprop"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DEPPROP_CONFIG_DIR"
	EnvDataDir   = "DEPPROP_DATA_DIR"
)

// ConfigFileName is the config file read from the config directory.
const ConfigFileName = "config.yaml"

// platform holds lookups that tests override.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
//	Linux:   $XDG_CONFIG_HOME/depprop, else ~/.config/depprop
//	macOS:   ~/Library/Application Support/depprop
//	Windows: %APPDATA%/depprop
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory. On macOS and
// Windows it is the same as the configuration directory.
//
//	Linux:   $XDG_DATA_HOME/depprop, else ~/.local/share/depprop
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func userDir(xdgVar, homeRel string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// DEPPROP_CONFIG_DIR, then DefaultConfigDir. Overrides are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the snapshot data directory: flag, then the
// data_dir value from config.yaml, then DEPPROP_DATA_DIR, then
// DefaultDataDir. Overrides are made absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDir, flag, configValue, os.Getenv(EnvDataDir))
}

func resolve(fallback func() (string, error), overrides ...string) (string, error) {
	for _, dir := range overrides {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return fallback()
}
