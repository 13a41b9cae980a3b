// Package watch uploads files as they appear in a local directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tonimelisma/filemgr-go/internal/api"
)

// DefaultDebounce is how long a directory must stay quiet before the
// collected files are uploaded.
const DefaultDebounce = 2 * time.Second

// Backoff applied while the watcher keeps reporting errors.
const (
	errInitBackoff = 100 * time.Millisecond
	errMaxBackoff  = 10 * time.Second
	errBackoffMult = 2
)

// partialSuffix marks in-progress downloads written by this client.
const partialSuffix = ".partial"

// FsWatcher is the subset of *fsnotify.Watcher the loop uses.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Uploader uploads local files into the remote folder being watched. The
// watcher passes one path per call, in the order files were first seen.
type Uploader interface {
	UploadFiles(ctx context.Context, paths []string) error
}

// Watcher uploads new and modified regular files in one directory.
// Subdirectories are not followed.
type Watcher struct {
	dir        string
	up         Uploader
	logger     *slog.Logger
	debounce   time.Duration
	newWatcher func() (FsWatcher, error)
	sleep      func(context.Context, time.Duration) error
}

// New creates a Watcher for dir. A non-positive debounce uses DefaultDebounce.
func New(dir string, up Uploader, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:        dir,
		up:         up,
		logger:     logger,
		debounce:   debounce,
		newWatcher: newFsnotifyWatcher,
		sleep:      timeSleep,
	}
}

// Run watches until ctx is canceled. An expired session ends the run with
// an error; any other upload failure is logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory", slog.String("dir", w.dir), slog.Duration("debounce", w.debounce))

	var (
		pending []string
		seen    = make(map[string]bool)
		flushC  <-chan time.Time
	)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	errBackoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				w.logger.Warn("stopping with files not uploaded", slog.Int("count", len(pending)))
			}

			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			errBackoff = errInitBackoff

			p, wanted := w.accept(ev)
			if !wanted {
				continue
			}

			if !seen[p] {
				seen[p] = true
				pending = append(pending, p)
			}

			timer.Reset(w.debounce)
			flushC = timer.C

		case watchErr, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := w.sleep(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff *= errBackoffMult
			if errBackoff > errMaxBackoff {
				errBackoff = errMaxBackoff
			}

		case <-flushC:
			flushC = nil
			batch := pending
			pending, seen = nil, make(map[string]bool)

			if err := w.flush(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// flush uploads the batch one file at a time so a single bad file does not
// cost the rest. Files removed since their event are skipped. Only an
// expired session or cancellation stops the flush.
func (w *Watcher) flush(ctx context.Context, batch []string) error {
	w.logger.Info("uploading changed files", slog.Int("count", len(batch)))

	for _, p := range batch {
		if _, err := os.Stat(p); err != nil {
			w.logger.Debug("watch: file gone before upload", slog.String("path", p))
			continue
		}

		err := w.up.UploadFiles(ctx, []string{p})
		if err == nil {
			continue
		}

		if api.IsUnauthorized(err) {
			return fmt.Errorf("watch: %w", err)
		}

		if errors.Is(err, context.Canceled) {
			return nil
		}

		w.logger.Error("upload failed", slog.String("path", p), slog.String("error", err.Error()))
	}

	return nil
}

// accept reports whether ev names a regular file that should be uploaded.
func (w *Watcher) accept(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}

	if ignored(filepath.Base(ev.Name)) {
		w.logger.Debug("watch: skipping ignored file", slog.String("path", ev.Name))
		return "", false
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		// Removed again before we looked.
		w.logger.Debug("watch: stat failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
		return "", false
	}

	if !info.Mode().IsRegular() {
		return "", false
	}

	return ev.Name, true
}

// ignored matches hidden files, editor backups and partial downloads.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, partialSuffix)
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
