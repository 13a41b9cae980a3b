package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// skipConfigCommands lists commands that must work without a valid config
// file because they create or repair it. Matched on CommandPath().
var skipConfigCommands = map[string]bool{
	"filemgr-go config init": true,
	"filemgr-go config set":  true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filemgr-go",
		Short:   "Remote file manager client",
		Long:    "Browse, upload, download and manage files on a file manager server from the terminal.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "server URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newForgotPasswordCmd())
	cmd.AddCommand(newResetPasswordCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass --server to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("server") {
		cli.ServerURL = &flagServer
	}

	if f := cmd.Flags().Lookup("download-dir"); f != nil && f.Changed {
		dir := f.Value.String()
		cli.DownloadDir = &dir
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// logLevel derives the effective level. Config-file log level provides the
// baseline; --verbose, --debug and --quiet override it because CLI flags
// always win.
func logLevel() slog.Level {
	level := slog.LevelWarn

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Output goes to stderr, or is appended to log_file when set.
func buildLogger() *slog.Logger {
	var out io.Writer = os.Stderr

	if resolvedCfg != nil && resolvedCfg.LogFile != "" {
		f, err := os.OpenFile(resolvedCfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", resolvedCfg.LogFile, err)
		} else {
			// Held open for the life of the process.
			out = f
		}
	}

	return newLogger(out, logLevel())
}

// newLogger picks the handler named by log_format.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if resolvedCfg != nil && resolvedCfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
