package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envHostBin      = "CROSSWIRE_HOST_BIN"
	envPushInterval = "CROSSWIRE_PUSH_INTERVAL"
)

var errConfigNotFound = errors.New("config file not found")

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Panel   PanelConfig   `json:"panel"`
	Host    HostConfig    `json:"host"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// PanelConfig contains renderer-side demo settings.
type PanelConfig struct {
	// HostBin is the binary spawned as the privileged side. Empty means
	// the current executable, run with the host subcommand.
	HostBin  string `json:"host_bin,omitempty"`
	WindowID string `json:"window_id,omitempty"`
}

// HostConfig contains privileged-side demo settings.
type HostConfig struct {
	WindowID            string `json:"window_id,omitempty"`
	PushIntervalSeconds int    `json:"push_interval_seconds,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Panel: PanelConfig{WindowID: "panel"},
		Host:  HostConfig{WindowID: "panel", PushIntervalSeconds: 2},
	}
}

// LoadConfig resolves config.json, unmarshals it over the defaults, and
// applies environment overrides. A missing config file is not an error; the
// defaults apply.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := findConfigPath()
	if err != nil {
		if errors.Is(err, errConfigNotFound) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := json.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if bin := strings.TrimSpace(os.Getenv(envHostBin)); bin != "" {
		cfg.Panel.HostBin = bin
	}

	if raw := strings.TrimSpace(os.Getenv(envPushInterval)); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			cfg.Host.PushIntervalSeconds = seconds
		}
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is CROSSWIRE_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("CROSSWIRE_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("CROSSWIRE_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errConfigNotFound
}
