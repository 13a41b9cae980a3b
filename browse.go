package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/internal/tui"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse files interactively",
		Long: "Open a full-screen file browser. Logs in from the browser when no session " +
			"is saved; the session is kept for later commands.",
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowse,
	}

	cmd.Flags().String("download-dir", "", "where downloads are saved (overrides download_dir)")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !stdinIsTerminal() {
		return errors.New("browse needs an interactive terminal")
	}

	// stderr belongs to the full-screen UI; only a log file gets records.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if resolvedCfg.LogFile != "" {
		logger = buildLogger()
	}

	sess, err := NewSession(resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := shutdownContext(cmd.Context(), logger, slog.String("server", sess.Resolved.ServerURL))
	defer stop()

	// Deletes are confirmed by the browser's own modal.
	ctrl := sess.Controller(ctx, browser.AutoConfirm{})

	start := ""
	if len(args) == 1 {
		start = args[0]
	}

	p := tea.NewProgram(
		tui.NewModel(ctx, ctrl, sess.Resolved.DownloadDir, start),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, runErr := p.Run()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running browser: %w", runErr)
	}

	return persistSession(sess, ctrl.Username())
}

// persistSession saves the cookies of a live session or drops a dead one.
func persistSession(sess *Session, username string) error {
	if username == "" {
		return sess.Clear()
	}

	if err := sess.Save(username); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}
