package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// forceExit is replaced in tests.
var forceExit = os.Exit

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM.
// attrs describe the interrupted work (server, watched directory) and are
// logged with that signal. A second signal exits with status 130. The
// returned stop releases the handler; call it when the command returns.
func shutdownContext(parent context.Context, logger *slog.Logger, attrs ...slog.Attr) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			args := []any{slog.String("signal", sig.String())}
			for _, a := range attrs {
				args = append(args, a)
			}

			logger.Info("interrupted, stopping after the current request", args...)
			cancel()
		case <-stopped:
			return
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, exiting now", slog.String("signal", sig.String()))
			forceExit(130)
		case <-stopped:
		case <-parent.Done():
		}
	}()

	var once sync.Once

	return ctx, func() {
		once.Do(func() {
			close(stopped)
			cancel()
		})
	}
}
