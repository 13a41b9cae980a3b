package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override layers
// (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)

	renderServerSection(ew, &r.ServerConfig)
	renderTransfersSection(ew, &r.TransfersConfig)
	renderSafetySection(ew, &r.SafetyConfig)
	renderLoggingSection(ew, &r.LoggingConfig)
	renderNetworkSection(ew, &r.NetworkConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("# server\n")
	ew.printf("server_url      = %q\n", s.ServerURL)
	ew.printf("\n")
}

func renderTransfersSection(ew *errWriter, t *TransfersConfig) {
	ew.printf("# transfers\n")
	ew.printf("download_dir    = %q\n", t.DownloadDir)
	ew.printf("max_upload_size = %q\n", t.MaxUploadSize)
	ew.printf("history_enabled = %t\n", t.HistoryEnabled)
	ew.printf("\n")
}

func renderSafetySection(ew *errWriter, s *SafetyConfig) {
	ew.printf("# safety\n")
	ew.printf("confirm_deletes = %t\n", s.ConfirmDeletes)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("# logging\n")
	ew.printf("log_level       = %q\n", l.LogLevel)

	if l.LogFile != "" {
		ew.printf("log_file        = %q\n", l.LogFile)
	}

	ew.printf("log_format      = %q\n", l.LogFormat)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("# network\n")
	ew.printf("connect_timeout = %q\n", n.ConnectTimeout)
	ew.printf("data_timeout    = %q\n", n.DataTimeout)

	if n.UserAgent != "" {
		ew.printf("user_agent      = %q\n", n.UserAgent)
	}
}
