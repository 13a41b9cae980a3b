// Package sessionfile persists the server's session cookies between CLI
// invocations, the terminal equivalent of a browser cookie store. Files are
// bound to the server URL they were saved for.
package sessionfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// FilePerms restricts session files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// Cookie is the persisted subset of an http.Cookie. The jar only exposes
// name and value, so nothing else is kept.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// File is the on-disk format for session files.
type File struct {
	Server  string            `json:"server"`
	Cookies []Cookie          `json:"cookies"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Load reads the session saved for server. Returns (nil, nil, nil) if the file
// does not exist or belongs to a different server.
func Load(path, server string) ([]*http.Cookie, map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}

	if err != nil {
		return nil, nil, fmt.Errorf("sessionfile: reading %s: %w", path, err)
	}

	var sf File
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, nil, fmt.Errorf("sessionfile: decoding %s: %w", path, err)
	}

	if sf.Server != server {
		return nil, nil, nil
	}

	cookies := make([]*http.Cookie, 0, len(sf.Cookies))
	for _, c := range sf.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}

	return cookies, sf.Meta, nil
}

// Save writes the session atomically (write-to-temp + rename) with 0600
// permissions. Never logs cookie values.
func Save(path, server string, cookies []*http.Cookie, meta map[string]string) error {
	sf := File{Server: server, Cookies: make([]Cookie, 0, len(cookies)), Meta: meta}
	for _, c := range cookies {
		sf.Cookies = append(sf.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("sessionfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("sessionfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sessionfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("sessionfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the session file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sessionfile: removing %s: %w", path, err)
	}

	return nil
}
