package api

import (
	"context"
	"fmt"
	"log/slog"
)

// ListFiles returns the entries of the directory at path ("" is the user's
// root). The server orders folders before files.
func (c *Client) ListFiles(ctx context.Context, path string) ([]FileEntry, error) {
	c.logger.Debug("listing files", slog.String("path", path))

	var entries []FileEntry
	if err := c.postJSON(ctx, "/api/files", listRequest{Path: path}, &entries); err != nil {
		return nil, fmt.Errorf("api: listing %q: %w", path, err)
	}

	if entries == nil {
		entries = []FileEntry{}
	}

	return entries, nil
}

// Delete removes name from the directory at path. isDir tells the server to
// remove a directory recursively.
func (c *Client) Delete(ctx context.Context, path, name string, isDir bool) error {
	c.logger.Info("deleting entry",
		slog.String("path", path),
		slog.String("name", name),
		slog.Bool("is_dir", isDir),
	)

	req := deleteRequest{Path: path, Name: name, IsDir: isDir}
	if err := c.postJSON(ctx, "/api/delete", req, nil); err != nil {
		return fmt.Errorf("api: deleting %q: %w", name, err)
	}

	return nil
}

// CreateFolder creates a folder called name inside the directory at path.
func (c *Client) CreateFolder(ctx context.Context, path, name string) error {
	c.logger.Info("creating folder",
		slog.String("path", path),
		slog.String("name", name),
	)

	if err := c.postJSON(ctx, "/api/create-folder", createFolderRequest{Path: path, Name: name}, nil); err != nil {
		return fmt.Errorf("api: creating folder %q: %w", name, err)
	}

	return nil
}
