package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key, validating the result before saving",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
}

// configJSON mirrors the TOML key names.
type configJSON struct {
	Path           string `json:"path"`
	ServerURL      string `json:"server_url"`
	DownloadDir    string `json:"download_dir"`
	MaxUploadSize  string `json:"max_upload_size"`
	HistoryEnabled bool   `json:"history_enabled"`
	ConfirmDeletes bool   `json:"confirm_deletes"`
	LogLevel       string `json:"log_level"`
	LogFile        string `json:"log_file"`
	LogFormat      string `json:"log_format"`
	ConnectTimeout string `json:"connect_timeout"`
	DataTimeout    string `json:"data_timeout"`
	UserAgent      string `json:"user_agent"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		c := resolvedCfg

		return printJSON(cmd.OutOrStdout(), configJSON{
			Path:           c.Path,
			ServerURL:      c.ServerURL,
			DownloadDir:    c.DownloadDir,
			MaxUploadSize:  c.MaxUploadSize,
			HistoryEnabled: c.HistoryEnabled,
			ConfirmDeletes: c.ConfirmDeletes,
			LogLevel:       c.LogLevel,
			LogFile:        c.LogFile,
			LogFormat:      c.LogFormat,
			ConnectTimeout: c.ConnectTimeout,
			DataTimeout:    c.DataTimeout,
			UserAgent:      c.UserAgent,
		})
	}

	return config.RenderEffective(resolvedCfg, cmd.OutOrStdout())
}

// configWritePath follows the same precedence as loading: --config, then
// FILEMGR_CONFIG, then the platform default.
func configWritePath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	if env := config.ReadEnvOverrides(); env.ConfigPath != "" {
		return env.ConfigPath
	}

	return config.DefaultConfigPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configWritePath()

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := configWritePath()

	if err := config.SetKey(path, args[0], args[1]); err != nil {
		return err
	}

	statusf(flagQuiet, "Set %s in %s\n", args[0], path)

	return nil
}
