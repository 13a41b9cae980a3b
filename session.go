package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/internal/config"
	"github.com/tonimelisma/filemgr-go/internal/history"
	"github.com/tonimelisma/filemgr-go/internal/sessionfile"
)

// metaUsername is the session file meta key holding the logged-in user.
const metaUsername = "username"

// errNotLoggedIn is returned by commands that need a session when none is
// stored or the stored one was rejected by the server.
var errNotLoggedIn = errors.New("not logged in, run 'filemgr-go login' first")

// Session bundles the API client for the configured server with the cookie
// file it was seeded from. Commands build one per invocation.
type Session struct {
	Client   *api.Client
	Resolved *config.Resolved
	Username string // from the session file; informational only

	path     string
	restored bool // cookies came from the session file
	logger   *slog.Logger
	history  *history.Store
}

// NewSession creates the API client from resolved config and restores any
// cookies saved for the same server. A corrupt session file is logged and
// treated as no session.
func NewSession(resolved *config.Resolved, logger *slog.Logger) (*Session, error) {
	client, err := api.NewClient(resolved.ServerURL, newHTTPClient(resolved), logger, resolved.UserAgent)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Client:   client,
		Resolved: resolved,
		path:     config.SessionFilePath(),
		logger:   logger,
	}

	cookies, meta, err := sessionfile.Load(s.path, resolved.ServerURL)
	if err != nil {
		logger.Warn("ignoring unreadable session file", slog.String("path", s.path), slog.String("error", err.Error()))
		return s, nil
	}

	client.SetCookies(cookies)
	s.Username = meta[metaUsername]
	s.restored = len(cookies) > 0

	logger.Debug("session restored",
		slog.String("server", resolved.ServerURL),
		slog.Int("cookies", len(cookies)),
	)

	return s, nil
}

// newHTTPClient applies connect_timeout to dialing and data_timeout to the
// wait for response headers. Transfers themselves are not capped so large
// files can stream for as long as they need.
func newHTTPClient(resolved *config.Resolved) *http.Client {
	dialer := &net.Dialer{Timeout: resolved.ConnectTimeoutDuration()}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = resolved.ConnectTimeoutDuration()
	tr.ResponseHeaderTimeout = resolved.DataTimeoutDuration()

	return &http.Client{Transport: tr}
}

// Save persists the client's current cookies for username.
func (s *Session) Save(username string) error {
	s.Username = username
	s.restored = true

	return sessionfile.Save(s.path, s.Resolved.ServerURL, s.Client.Cookies(), map[string]string{metaUsername: username})
}

// Clear removes the stored session. A file saved for another server is
// left alone.
func (s *Session) Clear() error {
	if !s.restored {
		return nil
	}

	s.Username = ""
	s.restored = false

	return sessionfile.Remove(s.path)
}

// Controller builds a browser controller over the session's client. When
// history is enabled the controller records into the local history database;
// failing to open it only costs the history, never the command.
func (s *Session) Controller(ctx context.Context, prompter browser.Prompter) *browser.Controller {
	opts := []browser.Option{
		browser.WithLogger(s.logger),
		browser.WithPrompter(prompter),
		browser.WithMaxUploadSize(s.Resolved.MaxUploadBytes()),
	}

	if s.Resolved.HistoryEnabled && s.history == nil {
		store, err := history.Open(ctx, config.HistoryDBPath(), s.logger)
		if err != nil {
			s.logger.Warn("transfer history disabled", slog.String("error", err.Error()))
		} else {
			s.history = store
		}
	}

	if s.history != nil {
		opts = append(opts, browser.WithRecorder(s.history, s.Resolved.ServerURL))
	}

	return browser.New(s.Client, opts...)
}

// Connect builds a controller and verifies the stored session with the
// server. A rejected session is removed from disk.
func (s *Session) Connect(ctx context.Context, prompter browser.Prompter) (*browser.Controller, error) {
	ctrl := s.Controller(ctx, prompter)

	if err := ctrl.CheckAuth(ctx); err != nil {
		return nil, s.authError(err)
	}

	return ctrl, nil
}

// authError maps a failed session check to errNotLoggedIn, dropping the
// stale cookie file on the way.
func (s *Session) authError(err error) error {
	if !api.IsUnauthorized(err) && !errors.Is(err, browser.ErrNotLoggedIn) {
		return err
	}

	if clearErr := s.Clear(); clearErr != nil {
		s.logger.Warn("removing stale session", slog.String("error", clearErr.Error()))
	}

	return errNotLoggedIn
}

// Finish translates an operation error for the user: a 401 mid-command
// means the session expired, everything else passes through.
func (s *Session) Finish(err error) error {
	if err == nil {
		return nil
	}

	if api.IsUnauthorized(err) {
		return fmt.Errorf("session expired: %w", s.authError(err))
	}

	return err
}

// Close releases the history database if it was opened.
func (s *Session) Close() {
	if s.history == nil {
		return
	}

	if err := s.history.Close(); err != nil {
		s.logger.Warn("closing history", slog.String("error", err.Error()))
	}

	s.history = nil
}

// newCommandSession is the common prologue of every remote command.
func newCommandSession() (*Session, *slog.Logger, error) {
	logger := buildLogger()

	sess, err := NewSession(resolvedCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return sess, logger, nil
}
