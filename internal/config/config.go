// Package config loads the dashboard's own app settings (refresh
// cadence, status thresholds, sort/filter defaults) from an
// XDG-located YAML file, and separately reads the host tool's MCP
// configuration as a read-only fact source about the host, not an app
// setting of this dashboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the dashboard's own tunable behavior.
type Config struct {
	Refresh RefreshConfig `yaml:"refresh"`
	Status  StatusConfig  `yaml:"status"`
	View    ViewConfig    `yaml:"view"`
}

// RefreshConfig controls the Snapshot Assembler's tick cadence.
// ProbeTimeout and QueryTimeout are parsed but not applied: the prober,
// the handle resolver and the store reader use their own fixed timeouts.
type RefreshConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// StatusConfig controls the Status Inferrer's thresholds.
type StatusConfig struct {
	CPUActiveThreshold float64       `yaml:"cpu_active_threshold"`
	StaleAfter         time.Duration `yaml:"stale_after"`
	ToolWaitWindow     time.Duration `yaml:"tool_wait_window"`
	UserThinkWindow    time.Duration `yaml:"user_think_window"`
}

// ViewConfig controls the View-State Filter/Sort's startup defaults.
type ViewConfig struct {
	DefaultSortKey       string `yaml:"default_sort_key"`
	DefaultDescending    bool   `yaml:"default_descending"`
	ShowToolProcesses    bool   `yaml:"show_tool_processes"`
	ShowNoSessionDefault bool   `yaml:"show_no_session"`
	ShowNonInteractive   bool   `yaml:"show_non_interactive"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the built-in
// defaults if the file doesn't exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

func defaultConfig() *Config {
	return &Config{
		Refresh: RefreshConfig{
			TickInterval: 2 * time.Second,
			ProbeTimeout: 5 * time.Second,
			QueryTimeout: 2 * time.Second,
		},
		Status: StatusConfig{
			CPUActiveThreshold: 5.0,
			StaleAfter:         120 * time.Second,
			ToolWaitWindow:     30 * time.Second,
			UserThinkWindow:    60 * time.Second,
		},
		View: ViewConfig{
			DefaultSortKey: "status",
		},
	}
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, for live-reload logging.
func Diff(old, new *Config) []string {
	var changes []string

	if old.Refresh.TickInterval != new.Refresh.TickInterval {
		changes = append(changes, fmt.Sprintf("refresh.tick_interval: %s → %s", old.Refresh.TickInterval, new.Refresh.TickInterval))
	}
	if old.Status.CPUActiveThreshold != new.Status.CPUActiveThreshold {
		changes = append(changes, fmt.Sprintf("status.cpu_active_threshold: %.1f → %.1f", old.Status.CPUActiveThreshold, new.Status.CPUActiveThreshold))
	}
	if old.Status.StaleAfter != new.Status.StaleAfter {
		changes = append(changes, fmt.Sprintf("status.stale_after: %s → %s", old.Status.StaleAfter, new.Status.StaleAfter))
	}
	if old.View.DefaultSortKey != new.View.DefaultSortKey {
		changes = append(changes, fmt.Sprintf("view.default_sort_key: %s → %s", old.View.DefaultSortKey, new.View.DefaultSortKey))
	}
	if old.View.ShowNonInteractive != new.View.ShowNonInteractive {
		changes = append(changes, fmt.Sprintf("view.show_non_interactive: %v → %v", old.View.ShowNonInteractive, new.View.ShowNonInteractive))
	}

	return changes
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultConfigPath returns the XDG-compliant app settings path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "otop", "config.yaml")
}
