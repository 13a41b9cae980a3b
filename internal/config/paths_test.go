package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigDir_NonEmpty(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultDataDir_NonEmpty(t *testing.T) {
	dir := DefaultDataDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
}

func TestDataFiles_UnderDataDir(t *testing.T) {
	dir := DefaultDataDir()

	assert.Equal(t, filepath.Join(dir, "session.json"), SessionFilePath())
	assert.Equal(t, filepath.Join(dir, "history.db"), HistoryDBPath())
	assert.Equal(t, filepath.Join(dir, "watch.pid"), WatchPIDPath())
}

func TestDefaultConfigDir_LinuxXDG(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux-only test")
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/"+appName, DefaultConfigDir())
}

func TestDefaultDataDir_LinuxXDG(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux-only test")
	}

	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/"+appName, DefaultDataDir())
}

func TestDefaultDataDir_LinuxFallback(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux-only test")
	}

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	assert.Equal(t, "/home/testuser/.local/share/"+appName, DefaultDataDir())
}

func TestDefaultConfigDir_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS-only test")
	}

	assert.Contains(t, DefaultConfigDir(), "Library/Application Support")
}
