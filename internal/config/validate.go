package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateTransfers(&cfg.TransfersConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	if s.ServerURL == "" {
		return []error{errors.New("server_url: must not be empty")}
	}

	u, err := url.Parse(s.ServerURL)
	if err != nil {
		return []error{fmt.Errorf("server_url: %w", err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("server_url: scheme must be http or https, got %q", s.ServerURL)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("server_url: missing host in %q", s.ServerURL)}
	}

	return nil
}

func validateTransfers(t *TransfersConfig) []error {
	var errs []error

	if t.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir: must not be empty"))
	}

	if _, err := ParseSize(t.MaxUploadSize); err != nil {
		errs = append(errs, fmt.Errorf("max_upload_size: %w", err))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	return errs
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}
