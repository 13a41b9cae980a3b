package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/config"
	"github.com/tonimelisma/filemgr-go/internal/sessionfile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resolvedFor(url string) *config.Resolved {
	cfg := config.DefaultConfig()
	cfg.ServerURL = url

	return &config.Resolved{Config: *cfg}
}

func TestNewHTTPClient_AppliesTimeouts(t *testing.T) {
	r := resolvedFor("http://localhost:8000")
	r.ConnectTimeout = "3s"
	r.DataTimeout = "45s"

	tr, ok := newHTTPClient(r).Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 45*time.Second, tr.ResponseHeaderTimeout)
}

func TestSession_SaveRestoreClear(t *testing.T) {
	srv := cliEnv(t)
	ctx := context.Background()

	sess, err := NewSession(resolvedFor(srv.URL), discardLogger())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Client.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, sess.Save("alice"))

	info, err := os.Stat(config.SessionFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(sessionfile.FilePerms), info.Mode().Perm())

	again, err := NewSession(resolvedFor(srv.URL), discardLogger())
	require.NoError(t, err)
	defer again.Close()

	assert.Equal(t, "alice", again.Username)

	ctrl, err := again.Connect(ctx, newTerminalPrompter(false))
	require.NoError(t, err)
	assert.Equal(t, "alice", ctrl.Username())

	require.NoError(t, again.Clear())

	_, err = os.Stat(config.SessionFilePath())
	assert.True(t, os.IsNotExist(err))
}

func TestSession_CorruptFileIsIgnored(t *testing.T) {
	srv := cliEnv(t)

	path := config.SessionFilePath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	sess, err := NewSession(resolvedFor(srv.URL), discardLogger())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Connect(context.Background(), newTerminalPrompter(false))
	assert.ErrorIs(t, err, errNotLoggedIn)

	// Not ours to delete.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestSession_FinishMapsUnauthorized(t *testing.T) {
	srv := cliEnv(t)

	sess, err := NewSession(resolvedFor(srv.URL), discardLogger())
	require.NoError(t, err)

	unauthorized := &api.APIError{StatusCode: http.StatusUnauthorized, Err: api.ErrUnauthorized}

	assert.NoError(t, sess.Finish(nil))
	assert.ErrorIs(t, sess.Finish(unauthorized), errNotLoggedIn)

	other := &api.APIError{StatusCode: http.StatusInternalServerError, Err: api.ErrServerError}
	assert.Equal(t, error(other), sess.Finish(other))
}

func TestSession_HistoryDisabled(t *testing.T) {
	srv := cliEnv(t)

	r := resolvedFor(srv.URL)
	r.HistoryEnabled = false

	sess, err := NewSession(r, discardLogger())
	require.NoError(t, err)
	defer sess.Close()

	sess.Controller(context.Background(), newTerminalPrompter(false))
	assert.Nil(t, sess.history)

	_, err = os.Stat(config.HistoryDBPath())
	assert.True(t, os.IsNotExist(err))
}
