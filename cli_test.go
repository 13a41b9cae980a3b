package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/internal/config"
	"github.com/tonimelisma/filemgr-go/testutil"
)

// cliEnv isolates config and data directories and starts a fake server
// with alice's tree: docs/, docs/report.txt and a.txt.
func cliEnv(t *testing.T) *testutil.FakeServer {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvServer, "")
	t.Setenv(config.EnvDownloadDir, "")

	srv := testutil.NewFakeServer()
	t.Cleanup(srv.Close)

	srv.AddUser("alice", "secret")
	srv.AddDir("alice", "docs")
	srv.AddFile("alice", "docs/report.txt", []byte("quarterly"))
	srv.AddFile("alice", "a.txt", []byte("alpha"))

	saveGlobals(t)

	return srv
}

// runCLI executes the root command against srv and returns stdout.
func runCLI(t *testing.T, srv *testutil.FakeServer, stdin string, args ...string) (string, error) {
	t.Helper()

	args = append(args, "--server="+srv.URL, "--quiet")

	return execute(t, stdin, args...)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func login(t *testing.T, srv *testutil.FakeServer) {
	t.Helper()

	out, err := runCLI(t, srv, "secret\n", "login", "--username", "alice", "--password-stdin")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as alice")
}

func TestLogin_SavesSession(t *testing.T) {
	srv := cliEnv(t)

	login(t, srv)

	_, err := os.Stat(config.SessionFilePath())
	require.NoError(t, err)

	out, err := runCLI(t, srv, "", "whoami", "--json")
	require.NoError(t, err)

	var got whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.LoggedIn)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, srv.URL, got.Server)
}

func TestLogin_PromptsForUsername(t *testing.T) {
	srv := cliEnv(t)

	out, err := runCLI(t, srv, "alice\nsecret\n", "login", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := cliEnv(t)

	_, err := runCLI(t, srv, "nope\n", "login", "-u", "alice", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username or password")

	_, statErr := os.Stat(config.SessionFilePath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	srv := cliEnv(t)

	out, err := runCLI(t, srv, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLs_RequiresLogin(t *testing.T) {
	srv := cliEnv(t)

	_, err := runCLI(t, srv, "", "ls")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLs_RootAndSubfolder(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	out, err := runCLI(t, srv, "", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "a.txt")
	assert.NotContains(t, out, "..")

	out, err = runCLI(t, srv, "", "ls", "/docs/", "--json")
	require.NoError(t, err)

	var items []lsJSONItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "report.txt", items[0].Name)
	assert.Equal(t, int64(len("quarterly")), items[0].Size)
	assert.Equal(t, browser.FileType("report.txt", false), items[0].Type)
}

func TestExpiredSessionIsRemoved(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	srv.ExpireSessions()

	_, err := runCLI(t, srv, "", "ls")
	require.ErrorIs(t, err, errNotLoggedIn)

	_, statErr := os.Stat(config.SessionFilePath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestSessionIgnoredForOtherServer(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	other := testutil.NewFakeServer()
	t.Cleanup(other.Close)
	other.AddUser("alice", "secret")

	out, err := runCLI(t, other, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	// The first server's session survives.
	out, err = runCLI(t, srv, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice on")
}

func TestPutThenGet(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	local := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(local, []byte("uploaded"), 0o600))

	_, err := runCLI(t, srv, "", "put", local, "--to", "docs")
	require.NoError(t, err)

	got, ok := srv.File("alice", "docs/up.txt")
	require.True(t, ok)
	assert.Equal(t, "uploaded", string(got))

	dest := t.TempDir()
	out, err := runCLI(t, srv, "", "get", "docs/up.txt", dest, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dest, "up.txt"))

	data, err := os.ReadFile(filepath.Join(dest, "up.txt"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded", string(data))
}

func TestPut_RejectsDirectory(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "put", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestGet_Errors(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "get", "docs", t.TempDir())
	assert.ErrorIs(t, err, browser.ErrNotAFile)

	_, err = runCLI(t, srv, "", "get", "missing.txt", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or folder")
}

func TestRm_WithYes(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "rm", "a.txt", "--yes")
	require.NoError(t, err)
	assert.False(t, srv.Exists("alice", "a.txt"))

	_, err = runCLI(t, srv, "", "rm", "docs", "-y")
	require.NoError(t, err)
	assert.False(t, srv.Exists("alice", "docs/report.txt"))
}

func TestRm_RefusesWithoutTerminal(t *testing.T) {
	if stdinIsTerminal() {
		t.Skip("stdin is a terminal")
	}

	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "rm", "a.txt")
	assert.ErrorIs(t, err, browser.ErrDeleteNotConfirm)
	assert.True(t, srv.Exists("alice", "a.txt"))
}

func TestMkdir(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "mkdir", "docs/2024")
	require.NoError(t, err)
	assert.True(t, srv.Exists("alice", "docs/2024"))

	_, err = runCLI(t, srv, "", "mkdir", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder already exists")

	_, err = runCLI(t, srv, "", "mkdir", "-p", "docs/x/y")
	require.NoError(t, err)
	assert.True(t, srv.Exists("alice", "docs/x/y"))
}

func TestLogout(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "logout")
	require.NoError(t, err)

	_, statErr := os.Stat(config.SessionFilePath())
	assert.True(t, os.IsNotExist(statErr))

	out, err := runCLI(t, srv, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLogout_ExpiredSessionStillSucceeds(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.ExpireSessions()

	_, err := runCLI(t, srv, "", "logout")
	require.NoError(t, err)
}

func TestHistoryRecordsTransfers(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, err := runCLI(t, srv, "", "get", "a.txt", t.TempDir())
	require.NoError(t, err)

	out, err := runCLI(t, srv, "", "history", "--json")
	require.NoError(t, err)

	var entries []historyJSONEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "download", entries[0].Kind)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "ok", entries[0].Status)
	assert.Equal(t, srv.URL, entries[0].Server)

	out, err = runCLI(t, srv, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "download")
	assert.Contains(t, out, "/a.txt")
}

func TestAccountCommands(t *testing.T) {
	srv := cliEnv(t)

	out, err := runCLI(t, srv, "hunter2\n", "register", "-u", "bob", "--email", "bob@example.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "registered")

	out, err = runCLI(t, srv, "hunter2\n", "login", "-u", "bob", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as bob")

	out, err = runCLI(t, srv, "", "forgot-password", "bob@example.com", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Reset email sent"}`, out)

	out, err = runCLI(t, srv, "newpass\n", "reset-password", "tok123", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Password reset")
}

func TestConfigInitSetShow(t *testing.T) {
	cliEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "", "config", "init", "--config", path)
	assert.ErrorIs(t, err, config.ErrConfigExists)

	_, err = execute(t, "", "config", "set", "server_url", "https://files.example.com", "--config", path, "-q")
	require.NoError(t, err)

	_, err = execute(t, "", "config", "set", "sever_url", "x", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "server_url"`)

	out, err = execute(t, "", "config", "show", "--json", "--config", path)
	require.NoError(t, err)

	var got configJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://files.example.com", got.ServerURL)
	assert.Equal(t, path, got.Path)

	out, err = execute(t, "", "config", "show", "--config", path, "--server", "http://override:9000")
	require.NoError(t, err)
	assert.Contains(t, out, "http://override:9000")
}

func TestInvalidConfigFails(t *testing.T) {
	cliEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"loud\"\n"), 0o600))

	_, err := execute(t, "", "whoami", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
