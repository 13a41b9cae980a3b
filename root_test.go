package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/filemgr-go/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must either:
//   - Set globals AFTER newRootCmd() returns (direct function tests), or
//   - Use cmd.SetArgs() + cmd.Execute() to let Cobra parse flags (integration tests).

// saveGlobals restores the logging globals when the test ends.
func saveGlobals(t *testing.T) {
	t.Helper()

	oldVerbose, oldDebug, oldQuiet := flagVerbose, flagDebug, flagQuiet
	oldCfg := resolvedCfg

	t.Cleanup(func() {
		flagVerbose, flagDebug, flagQuiet = oldVerbose, oldDebug, oldQuiet
		resolvedCfg = oldCfg
	})

	flagVerbose, flagDebug, flagQuiet = false, false, false
	resolvedCfg = nil
}

func resolvedWith(logLevel, logFormat string) *config.Resolved {
	cfg := config.DefaultConfig()
	cfg.LogLevel = logLevel
	cfg.LogFormat = logFormat

	return &config.Resolved{Config: *cfg}
}

func TestBuildLogger_Default(t *testing.T) {
	saveGlobals(t)

	logger := buildLogger()

	// Default level is Warn.
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	saveGlobals(t)

	resolvedCfg = resolvedWith("debug", "text")

	logger := buildLogger()
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		debug   bool
		quiet   bool
		want    slog.Level
	}{
		{"verbose", true, false, false, slog.LevelInfo},
		{"debug", false, true, false, slog.LevelDebug},
		{"quiet", false, false, true, slog.LevelError},
		{"quiet wins", true, true, true, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveGlobals(t)

			resolvedCfg = resolvedWith("warn", "text")
			flagVerbose, flagDebug, flagQuiet = tt.verbose, tt.debug, tt.quiet

			assert.Equal(t, tt.want, logLevel())
		})
	}
}

func TestBuildLogger_LogFileJSON(t *testing.T) {
	saveGlobals(t)

	path := filepath.Join(t.TempDir(), "filemgr.log")
	resolvedCfg = resolvedWith("info", "json")
	resolvedCfg.LogFile = path

	buildLogger().Info("hello", slog.String("k", "v"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNewRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"login", "logout", "whoami", "register", "forgot-password", "reset-password",
		"ls", "get", "put", "rm", "mkdir", "browse", "watch", "history", "config",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestSkipConfigCommands_MatchCommandPaths(t *testing.T) {
	cmd := newRootCmd()

	for path := range skipConfigCommands {
		found := false

		for _, c := range cmd.Commands() {
			for _, sub := range c.Commands() {
				if sub.CommandPath() == path {
					found = true
				}
			}
		}

		assert.True(t, found, "no command at %q", path)
	}
}
