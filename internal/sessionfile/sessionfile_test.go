package sessionfile

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServer = "http://localhost:8000"

func TestLoad_FileNotFound(t *testing.T) {
	cookies, meta, err := Load("/nonexistent/path/session.json", testServer)
	assert.Nil(t, cookies)
	assert.Nil(t, meta)
	assert.NoError(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	cookies := []*http.Cookie{{Name: "session_token", Value: "abc"}}
	meta := map[string]string{"username": "alice"}

	require.NoError(t, Save(path, testServer, cookies, meta))

	loaded, loadedMeta, err := Load(path, testServer)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "session_token", loaded[0].Name)
	assert.Equal(t, "abc", loaded[0].Value)
	assert.Equal(t, "alice", loadedMeta["username"])
}

func TestLoad_DifferentServerIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, Save(path, testServer, []*http.Cookie{{Name: "s", Value: "v"}}, nil))

	cookies, meta, err := Load(path, "https://files.example.com")
	require.NoError(t, err)
	assert.Nil(t, cookies)
	assert.Nil(t, meta)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	cookies, _, err := Load(path, testServer)
	assert.Nil(t, cookies)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	require.NoError(t, Save(path, testServer, nil, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DirPerms), dirInfo.Mode().Perm())
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	require.NoError(t, Save(path, testServer, []*http.Cookie{{Name: "a", Value: "1"}}, nil))
	require.NoError(t, Save(path, testServer, []*http.Cookie{{Name: "a", Value: "2"}}, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, Save(path, testServer, nil, nil))
	require.NoError(t, Remove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second remove is a no-op.
	assert.NoError(t, Remove(path))
}
