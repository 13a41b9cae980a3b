package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is the config file content written by "config init".
// Every setting is present as a commented-out default so users can discover
// options without reading docs.
const configTemplate = `# filemgr-go configuration

# Base URL of the file manager server
# server_url = "http://localhost:8000"

# Where "get" and the browser save downloads
# download_dir = "."

# Refuse local files larger than this before uploading ("0" = no limit)
# max_upload_size = "0"

# Ask before deleting
# confirm_deletes = true

# Keep a local log of uploads, downloads and deletes
# history_enabled = true

# Log verbosity: debug, info, warn, error
# log_level = "warn"

# Log format: text, json
# log_format = "text"

# Append logs to this file instead of stderr
# log_file = ""

# HTTP timeouts
# connect_timeout = "10s"
# data_timeout = "60s"
`

// WriteDefault creates a new config file from the default template. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	slog.Info("creating config file", "path", path)

	return atomicWriteFile(path, []byte(configTemplate))
}

// SetKey sets a top-level key in the config file at path, creating the file
// from the template if needed. An existing assignment is replaced in place;
// otherwise the line is appended. The result is validated before it is
// written, so a bad value never reaches disk.
func SetKey(path, key, value string) error {
	if !knownGlobalKeys[key] {
		if s := closestMatch(key, knownGlobalKeysList); s != "" {
			return fmt.Errorf("unknown config key %q, did you mean %q?", key, s)
		}

		return fmt.Errorf("unknown config key %q", key)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := setTopLevelKey(strings.Split(string(data), "\n"), key, key+" = "+formatTOMLValue(value))
	content := strings.Join(lines, "\n")

	cfg := DefaultConfig()
	if _, err := toml.Decode(content, cfg); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	slog.Info("setting config key", "path", path, "key", key, "value", value)

	return atomicWriteFile(path, []byte(content))
}

// setTopLevelKey replaces the first uncommented assignment of key before
// any table header, or inserts newLine ahead of the first table header.
func setTopLevelKey(lines []string, key, newLine string) []string {
	keyPrefix := key + " "
	keyPrefixEq := key + "="
	insertAt := len(lines)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			insertAt = i
			break
		}

		if strings.HasPrefix(trimmed, keyPrefix) || strings.HasPrefix(trimmed, keyPrefixEq) {
			lines[i] = newLine
			return lines
		}
	}

	// Keep a trailing newline at end of file.
	if insertAt == len(lines) && insertAt > 0 && lines[insertAt-1] == "" {
		insertAt--
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, newLine)
	out = append(out, lines[insertAt:]...)

	return out
}

// formatTOMLValue formats a value for TOML output. Booleans are written
// bare (true/false); all other values are quoted strings. Every config key
// is either a bool or a string.
func formatTOMLValue(value string) string {
	if value == "true" || value == "false" {
		return value
	}

	return fmt.Sprintf("%q", value)
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed. Files are created with configFilePermissions (0644).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
