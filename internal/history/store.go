// Package history keeps a local log of file operations (uploads, downloads,
// deletes, folder creations) in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Kind identifies the operation a history entry records.
type Kind string

// Operation kinds.
const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
	KindDelete   Kind = "delete"
	KindMkdir    Kind = "mkdir"
)

// Status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// DefaultLimit is the number of rows Recent returns for a non-positive limit.
const DefaultLimit = 50

const (
	sqlInsert = `INSERT INTO transfers
		(kind, server, remote_dir, name, local_path, bytes, status, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecent = `SELECT id, kind, server, remote_dir, name, local_path, bytes, status, error, recorded_at
		FROM transfers ORDER BY recorded_at DESC, id DESC LIMIT ?`
)

// Entry is one recorded operation.
type Entry struct {
	ID         int64
	Kind       Kind
	Server     string
	RemoteDir  string
	Name       string
	LocalPath  string
	Bytes      int64
	Status     string
	Error      string
	RecordedAt time.Time
}

// Store is the history database. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the history database at dbPath and applies
// migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	// Single writer; the CLI never needs more.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history database ready", slog.String("path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. RecordedAt defaults to now and Status to StatusOK.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.nowFunc()
	}

	if e.Status == "" {
		e.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx, sqlInsert,
		string(e.Kind), e.Server, e.RemoteDir, e.Name, e.LocalPath, e.Bytes,
		e.Status, e.Error, e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s of %q: %w", e.Kind, e.Name, err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, sqlRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent entries: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e    Entry
			kind string
			nano int64
		)

		if err := rows.Scan(&e.ID, &kind, &e.Server, &e.RemoteDir, &e.Name, &e.LocalPath,
			&e.Bytes, &e.Status, &e.Error, &nano); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}

		e.Kind = Kind(kind)
		e.RecordedAt = time.Unix(0, nano)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating entries: %w", err)
	}

	return out, nil
}
