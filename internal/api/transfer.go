package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
)

// DownloadURL returns the GET URL for a file: the directory path and file
// name travel as query-encoded parameters.
func (c *Client) DownloadURL(path, filename string) string {
	q := url.Values{}
	q.Set("path", path)
	q.Set("filename", filename)

	return c.endpoint("/api/download", q)
}

// Download streams the file at path/filename to w and returns the number of
// bytes written.
func (c *Client) Download(ctx context.Context, path, filename string, w io.Writer) (int64, error) {
	c.logger.Info("downloading file",
		slog.String("path", path),
		slog.String("filename", filename),
	)

	resp, err := c.doURL(ctx, http.MethodGet, c.DownloadURL(path, filename), "/api/download", "", http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("api: downloading %q: %w", filename, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", err.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("api: streaming download content: %w", err)
	}

	c.logger.Debug("download complete",
		slog.String("filename", filename),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}

// Upload sends r as a multipart form with fields "file" (named filename) and
// "path". The body is streamed through a pipe so large files are never held
// in memory.
func (c *Client) Upload(ctx context.Context, path, filename string, r io.Reader) error {
	c.logger.Info("uploading file",
		slog.String("path", path),
		slog.String("filename", filename),
	)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, path, filename, r))
	}()

	resp, err := c.Do(ctx, http.MethodPost, "/api/upload", mw.FormDataContentType(), pr)
	// Unblock the writer goroutine if the request ended before draining the pipe.
	pr.Close()

	if err != nil {
		return fmt.Errorf("api: uploading %q: %w", filename, err)
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body, "/api/upload", nil)
}

// writeUploadForm writes the multipart body. The path field precedes the
// file part so the server can read it without buffering the file.
func writeUploadForm(mw *multipart.Writer, path, filename string, r io.Reader) error {
	if err := mw.WriteField("path", path); err != nil {
		return fmt.Errorf("writing path field: %w", err)
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copying file content: %w", err)
	}

	return mw.Close()
}
