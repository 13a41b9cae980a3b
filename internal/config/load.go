package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.ServerURL != "" {
		cfg.ServerURL = env.ServerURL
	}

	if env.DownloadDir != "" {
		cfg.DownloadDir = env.DownloadDir
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.ServerURL != nil {
		cfg.ServerURL = *cli.ServerURL
	}

	if cli.DownloadDir != nil {
		cfg.DownloadDir = *cli.DownloadDir
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	cfg.DownloadDir = expandTilde(cfg.DownloadDir)
	cfg.LogFile = expandTilde(cfg.LogFile)

	// 5. Validate the final result; env and CLI values bypass Load's check.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &Resolved{Config: *cfg, Path: cfgPath}, nil
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
