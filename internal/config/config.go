// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for filemgr. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags). All
// keys are flat top-level keys; the sub-structs below only group them.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	ServerConfig
	TransfersConfig
	SafetyConfig
	LoggingConfig
	NetworkConfig
}

// ServerConfig selects the file manager server.
type ServerConfig struct {
	ServerURL string `toml:"server_url"`
}

// TransfersConfig controls where downloads land and how large uploads may be.
type TransfersConfig struct {
	DownloadDir    string `toml:"download_dir"`
	MaxUploadSize  string `toml:"max_upload_size"`
	HistoryEnabled bool   `toml:"history_enabled"`
}

// SafetyConfig controls confirmation of destructive operations.
type SafetyConfig struct {
	ConfirmDeletes bool `toml:"confirm_deletes"`
}

// LoggingConfig controls log output behavior: level, format, and destination.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use default)
	ServerURL   *string // --server flag
	DownloadDir *string // get --to / browse download directory
}

// Resolved is a fully layered and validated configuration plus the path it
// was loaded from.
type Resolved struct {
	Config

	// Path is the config file consulted. The file may not exist.
	Path string
}

// MaxUploadBytes returns max_upload_size in bytes. Zero means unlimited.
// The value was validated during Resolve, so parse errors cannot occur.
func (c *Config) MaxUploadBytes() int64 {
	n, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return 0
	}

	return n
}

// ConnectTimeoutDuration returns connect_timeout as a time.Duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return mustDuration(c.ConnectTimeout)
}

// DataTimeoutDuration returns data_timeout as a time.Duration.
func (c *Config) DataTimeoutDuration() time.Duration {
	return mustDuration(c.DataTimeout)
}

// mustDuration parses an already validated duration string.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}

	return d
}
