package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/internal/config"
	"github.com/tonimelisma/filemgr-go/internal/history"
)

var flagHistoryLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads, downloads, deletes and folder creations",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", history.DefaultLimit, "number of entries to show")

	return cmd
}

type historyJSONEntry struct {
	Kind       string `json:"kind"`
	Server     string `json:"server"`
	RemoteDir  string `json:"remote_dir"`
	Name       string `json:"name"`
	LocalPath  string `json:"local_path,omitempty"`
	Bytes      int64  `json:"bytes"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	store, err := history.Open(cmd.Context(), config.HistoryDBPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		out := make([]historyJSONEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyJSONEntry{
				Kind:       string(e.Kind),
				Server:     e.Server,
				RemoteDir:  "/" + e.RemoteDir,
				Name:       e.Name,
				LocalPath:  e.LocalPath,
				Bytes:      e.Bytes,
				Status:     e.Status,
				Error:      e.Error,
				RecordedAt: e.RecordedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}

		return printJSON(cmd.OutOrStdout(), out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
		return nil
	}

	headers := []string{"WHEN", "KIND", "STATUS", "SIZE", "PATH"}
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		size := "-"
		if e.Bytes > 0 {
			size = browser.FormatSize(e.Bytes)
		}

		status := e.Status
		if e.Error != "" {
			status += " (" + strconv.Quote(e.Error) + ")"
		}

		rows = append(rows, []string{
			formatTime(e.RecordedAt),
			string(e.Kind),
			status,
			size,
			"/" + browser.JoinPath(e.RemoteDir, e.Name),
		})
	}

	printTable(cmd.OutOrStdout(), headers, rows)

	return nil
}
