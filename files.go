package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/browser"
)

var (
	flagGetTo  string
	flagPutTo  string
	flagRmYes  bool
	flagMkdirP bool
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <remote-path> [local-dir]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}

	cmd.Flags().StringVar(&flagGetTo, "to", "", "local directory (defaults to download_dir)")

	return cmd
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-file>...",
		Short: "Upload files, in order, into a remote folder",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPut,
	}

	cmd.Flags().StringVar(&flagPutTo, "to", "", "remote folder (defaults to root)")

	return cmd
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder (folders are removed recursively)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}

	cmd.Flags().BoolVarP(&flagRmYes, "yes", "y", false, "delete without asking")

	return cmd
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}

	cmd.Flags().BoolVarP(&flagMkdirP, "parents", "p", false, "create missing parent folders")

	return cmd
}

type lsJSONItem struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Modified string `json:"modified,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	ctrl, err := sess.Connect(ctx, newTerminalPrompter(false))
	if err != nil {
		return err
	}

	if len(args) == 1 && browser.CleanPath(args[0]) != "" {
		if err := ctrl.NavigateTo(ctx, args[0]); err != nil {
			return sess.Finish(err)
		}
	}

	entries := ctrl.Entries()

	if flagJSON {
		return printItemsJSON(cmd.OutOrStdout(), entries)
	}

	printItemsTable(cmd.OutOrStdout(), entries)

	return nil
}

func printItemsJSON(w io.Writer, entries []api.FileEntry) error {
	out := make([]lsJSONItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, lsJSONItem{
			Name:     e.Name,
			IsDir:    e.IsDir,
			Size:     e.Size,
			Type:     browser.FileType(e.Name, e.IsDir),
			Modified: e.Modified,
		})
	}

	return printJSON(w, out)
}

// printItemsTable keeps the server's order, which already lists folders first.
func printItemsTable(w io.Writer, entries []api.FileEntry) {
	headers := []string{"NAME", "TYPE", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		name, size := e.Name, browser.FormatSize(e.Size)
		if e.IsDir {
			name += "/"
			size = "-"
		}

		modified := e.Modified
		if modified == "" {
			modified = "-"
		}

		rows = append(rows, []string{name, browser.FileType(e.Name, e.IsDir), size, modified})
	}

	printTable(w, headers, rows)
}

// findEntry navigates to the parent of remotePath and returns the entry
// named by its last element.
func findEntry(cmd *cobra.Command, sess *Session, ctrl *browser.Controller, remotePath string) (api.FileEntry, error) {
	dir, name := splitParentAndName(remotePath)
	if name == "" {
		return api.FileEntry{}, fmt.Errorf("invalid remote path %q", remotePath)
	}

	if dir != "" {
		if err := ctrl.NavigateTo(cmd.Context(), dir); err != nil {
			return api.FileEntry{}, sess.Finish(err)
		}
	}

	for _, e := range ctrl.Entries() {
		if e.Name == name {
			return e, nil
		}
	}

	return api.FileEntry{}, fmt.Errorf("%s: no such file or folder", browser.JoinPath(dir, name))
}

func runGet(cmd *cobra.Command, args []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctrl, err := sess.Connect(cmd.Context(), newTerminalPrompter(false))
	if err != nil {
		return err
	}

	entry, err := findEntry(cmd, sess, ctrl, args[0])
	if err != nil {
		return err
	}

	dest := sess.Resolved.DownloadDir

	switch {
	case len(args) == 2:
		dest = args[1]
	case flagGetTo != "":
		dest = flagGetTo
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	local, err := ctrl.DownloadFile(cmd.Context(), entry, dest)
	if err != nil {
		return sess.Finish(err)
	}

	statusf(flagQuiet, "%s\n", ctrl.View().Status)

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]string{"path": local})
	}

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	ctrl, err := sess.Connect(ctx, newTerminalPrompter(false))
	if err != nil {
		return err
	}

	if dir := browser.CleanPath(flagPutTo); dir != "" {
		if err := ctrl.NavigateTo(ctx, dir); err != nil {
			return sess.Finish(err)
		}
	}

	for _, p := range args {
		if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
			return fmt.Errorf("%s is a directory; only files can be uploaded", p)
		}
	}

	if err := ctrl.UploadFiles(ctx, args); err != nil {
		return sess.Finish(err)
	}

	statusf(flagQuiet, "%s: %d file(s) to /%s\n", ctrl.View().Status, len(args), ctrl.CurrentPath())

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	assumeYes := flagRmYes || !sess.Resolved.ConfirmDeletes

	ctrl, err := sess.Connect(cmd.Context(), newTerminalPrompter(assumeYes))
	if err != nil {
		return err
	}

	entry, err := findEntry(cmd, sess, ctrl, args[0])
	if err != nil {
		return err
	}

	if err := ctrl.DeleteFile(cmd.Context(), entry); err != nil {
		return sess.Finish(err)
	}

	statusf(flagQuiet, "%s\n", ctrl.View().Status)

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	ctrl, err := sess.Connect(ctx, newTerminalPrompter(false))
	if err != nil {
		return err
	}

	target := browser.CleanPath(args[0])
	if target == "" {
		return fmt.Errorf("invalid folder path %q", args[0])
	}

	parts := strings.Split(target, "/")
	if !flagMkdirP {
		parent, name := splitParentAndName(target)
		if parent != "" {
			if err := ctrl.NavigateTo(ctx, parent); err != nil {
				return sess.Finish(err)
			}
		}

		parts = []string{name}
	}

	for i, name := range parts {
		if flagMkdirP && hasDir(ctrl.Entries(), name) {
			if err := ctrl.NavigateTo(ctx, browser.JoinPath(ctrl.CurrentPath(), name)); err != nil {
				return sess.Finish(err)
			}

			continue
		}

		if err := ctrl.CreateFolder(ctx, name); err != nil {
			return sess.Finish(err)
		}

		statusf(flagQuiet, "%s\n", ctrl.View().Status)

		if i < len(parts)-1 {
			if err := ctrl.NavigateTo(ctx, browser.JoinPath(ctrl.CurrentPath(), name)); err != nil {
				return sess.Finish(err)
			}
		}
	}

	return nil
}

func hasDir(entries []api.FileEntry, name string) bool {
	for _, e := range entries {
		if e.IsDir && e.Name == name {
			return true
		}
	}

	return false
}

// splitParentAndName splits a remote path into its parent folder and final
// element, both normalized.
func splitParentAndName(p string) (string, string) {
	clean := browser.CleanPath(p)
	if clean == "" {
		return "", ""
	}

	return browser.ParentPath(clean), clean[strings.LastIndex(clean, "/")+1:]
}
