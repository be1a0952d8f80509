// Package config loads the operator-facing portwatch configuration.
//
// Config is distinct from the settings store: config is input the user
// edits by hand (log level, defaults, extra classifier keywords), while
// settings are application state portwatch persists on its own (favorites,
// watched ports, preferences).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"portwatch/internal/classify"
)

// Config is the top-level configuration structure for portwatch.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`

	// RefreshInterval is the default auto-refresh period in seconds, used
	// when no persisted setting exists yet.
	RefreshInterval int `yaml:"refreshInterval,omitempty"`

	// DesktopNotifications enables the OS notification sink.
	DesktopNotifications *bool `yaml:"desktopNotifications,omitempty"`

	// ClassifierKeywords adds extra process-name keywords per category,
	// layered on top of the built-in tables.
	ClassifierKeywords map[string][]string `yaml:"classifierKeywords,omitempty"`
}

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/portwatch"
	projectConfigDir = ".portwatch"
	configFileName   = "config.yaml"
)

// Default returns the built-in configuration.
func Default() Config {
	enabled := true
	return Config{
		LogLevel:             "info",
		RefreshInterval:      5,
		DesktopNotifications: &enabled,
	}
}

// Load builds the effective configuration by layering defaults, the user
// file, and the project file. Missing files are fine; a file that exists
// but does not parse is an error.
func Load() (Config, error) {
	cfg := Default()

	userPath, err := userConfigPath()
	if err == nil {
		if overlay, ok, err := loadFile(userPath); err != nil {
			return Config{}, fmt.Errorf("loading user config from %s: %w", userPath, err)
		} else if ok {
			cfg = merge(cfg, overlay)
		}
	}

	projectPath, err := projectConfigPath()
	if err == nil {
		if overlay, ok, err := loadFile(projectPath); err != nil {
			return Config{}, fmt.Errorf("loading project config from %s: %w", projectPath, err)
		} else if ok {
			cfg = merge(cfg, overlay)
		}
	}

	return cfg, nil
}

func userConfigPath() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, userConfigDir, configFileName), nil
}

func projectConfigPath() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadFile reads one config file. ok=false means the file does not exist.
func loadFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

// merge overlays 'overlay' onto 'base'. Scalars replace when set; keyword
// lists append per category.
func merge(base, overlay Config) Config {
	merged := base
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.RefreshInterval > 0 {
		merged.RefreshInterval = overlay.RefreshInterval
	}
	if overlay.DesktopNotifications != nil {
		merged.DesktopNotifications = overlay.DesktopNotifications
	}
	if len(overlay.ClassifierKeywords) > 0 {
		if merged.ClassifierKeywords == nil {
			merged.ClassifierKeywords = make(map[string][]string)
		}
		for cat, words := range overlay.ClassifierKeywords {
			merged.ClassifierKeywords[cat] = append(merged.ClassifierKeywords[cat], words...)
		}
	}
	return merged
}

// DesktopNotificationsEnabled reports the effective desktop-sink toggle.
func (c Config) DesktopNotificationsEnabled() bool {
	if c.DesktopNotifications == nil {
		return true
	}
	return *c.DesktopNotifications
}

// ExtraKeywords converts the configured keyword map onto classifier
// categories, dropping unknown category names.
func (c Config) ExtraKeywords() map[classify.Category][]string {
	if len(c.ClassifierKeywords) == 0 {
		return nil
	}
	known := make(map[string]classify.Category, len(classify.AllCategories))
	for _, cat := range classify.AllCategories {
		known[string(cat)] = cat
	}
	out := make(map[classify.Category][]string)
	for name, words := range c.ClassifierKeywords {
		if cat, ok := known[name]; ok {
			out[cat] = append(out[cat], words...)
		}
	}
	return out
}
