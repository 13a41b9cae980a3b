package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/internal/config"
	"github.com/tonimelisma/filemgr-go/internal/watch"
)

var (
	flagWatchTo       string
	flagWatchDebounce time.Duration
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <local-dir>",
		Short: "Upload files as they appear in a local directory",
		Long: "Watch a local directory and upload new or modified files to a remote folder. " +
			"Runs until interrupted. Only one watch runs at a time.",
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&flagWatchTo, "to", "", "remote folder (defaults to root)")
	cmd.Flags().DurationVar(&flagWatchDebounce, "debounce", watch.DefaultDebounce, "quiet period before uploading")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cleanup, err := writePIDFile(config.WatchPIDPath())
	if err != nil {
		return err
	}
	defer cleanup()

	sess, logger, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := shutdownContext(cmd.Context(), logger,
		slog.String("dir", dir),
		slog.String("server", sess.Resolved.ServerURL),
	)
	defer stop()

	ctrl, err := sess.Connect(ctx, newTerminalPrompter(false))
	if err != nil {
		return err
	}

	if remote := browser.CleanPath(flagWatchTo); remote != "" {
		if err := ctrl.NavigateTo(ctx, remote); err != nil {
			return sess.Finish(err)
		}
	}

	statusf(flagQuiet, "Watching %s, uploading to /%s (Ctrl-C to stop)\n", dir, ctrl.CurrentPath())

	err = watch.New(dir, ctrl, flagWatchDebounce, logger).Run(ctx)
	if err != nil {
		return sess.Finish(err)
	}

	return nil
}
