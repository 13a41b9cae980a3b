// Package browser implements the session and navigation controller of the
// file manager: it owns the current directory, the authenticated identity,
// and the selection set, dispatches remote operations, and rebuilds the View
// after every state change.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/history"
)

// Status lines shown to the user.
const (
	StatusLoading        = "Loading..."
	StatusReady          = "Ready"
	StatusPleaseLogIn    = "Please log in"
	StatusSessionExpired = "Session expired, please log in again"
	StatusLoggedOut      = "Logged out"
)

// FileService is the remote API as seen by the controller. *api.Client
// implements it.
type FileService interface {
	UserInfo(ctx context.Context) (*api.UserInfo, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context) error
	ListFiles(ctx context.Context, path string) ([]api.FileEntry, error)
	Delete(ctx context.Context, path, name string, isDir bool) error
	CreateFolder(ctx context.Context, path, name string) error
	Upload(ctx context.Context, path, filename string, r io.Reader) error
	Download(ctx context.Context, path, filename string, w io.Writer) (int64, error)
	DownloadURL(path, filename string) string
}

// Recorder receives a history entry for every completed or failed transfer.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithPrompter sets the confirmation/alert provider.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) {
		if p != nil {
			c.prompt = p
		}
	}
}

// WithRecorder enables history recording. server labels the entries.
func WithRecorder(r Recorder, server string) Option {
	return func(c *Controller) {
		c.recorder = r
		c.server = server
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxUploadSize rejects local files larger than n bytes before upload.
// Zero means unlimited.
func WithMaxUploadSize(n int64) Option {
	return func(c *Controller) {
		c.maxUploadSize = n
	}
}

// Controller is the single owner of session and navigation state.
//
// Operations run one at a time: opMu is held for the whole remote round trip,
// so a second action waits for the first. State reads (View) only take mu and
// never block on the network.
type Controller struct {
	opMu sync.Mutex

	mu          sync.Mutex
	username    string
	currentPath string
	selection   Selection
	entries     []api.FileEntry
	loginPrompt bool
	status      string

	svc           FileService
	prompt        Prompter
	recorder      Recorder
	server        string
	logger        *slog.Logger
	maxUploadSize int64
}

// New creates a controller with no session at the root directory.
func New(svc FileService, opts ...Option) *Controller {
	c := &Controller{
		svc:         svc,
		prompt:      denyPrompter{},
		logger:      slog.Default(),
		loginPrompt: true,
		status:      StatusPleaseLogIn,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// View returns a snapshot of the rendered state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Username:    c.username,
		Path:        c.currentPath,
		LoginPrompt: c.loginPrompt,
		Status:      c.status,
		Selected:    c.selection.Len(),
	}

	if !c.loginPrompt {
		v.Rows = buildRows(c.currentPath, c.entries, &c.selection)
	}

	return v
}

// Username returns the authenticated identity, or "" without a session.
func (c *Controller) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.username
}

// CurrentPath returns the current directory ("" is root).
func (c *Controller) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.currentPath
}

// Selected returns the selected file names in sorted order.
func (c *Controller) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selection.Names()
}

// Entries returns the entries of the last successful listing.
func (c *Controller) Entries() []api.FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]api.FileEntry(nil), c.entries...)
}

// CheckAuth asks the server who the session belongs to. On success it sets
// the session and loads the listing; on any failure it shows the login prompt.
func (c *Controller) CheckAuth(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	info, err := c.svc.UserInfo(ctx)
	if err != nil {
		c.logger.Debug("auth check failed", slog.String("error", err.Error()))

		status := StatusPleaseLogIn
		if !api.IsUnauthorized(err) {
			status = errorStatus("checking session", err)
		}

		c.mu.Lock()
		c.username = ""
		c.showLoginPromptLocked(status)
		c.mu.Unlock()

		return err
	}

	name := info.DisplayName()
	if name == "" {
		c.mu.Lock()
		c.showLoginPromptLocked(StatusPleaseLogIn)
		c.mu.Unlock()

		return ErrNotLoggedIn
	}

	c.mu.Lock()
	c.username = name
	c.mu.Unlock()

	c.logger.Debug("session valid", slog.String("username", name))

	return c.reload(ctx, StatusReady)
}

// Login authenticates with the server and loads the root listing.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setStatus("Logging in...")

	name, err := c.svc.Login(ctx, username, password)
	if err != nil {
		c.logger.Warn("login failed", slog.String("username", username), slog.String("error", err.Error()))
		c.setStatus(errorStatus("login", err))

		return err
	}

	c.mu.Lock()
	c.username = name
	c.currentPath = ""
	c.selection.Clear()
	c.mu.Unlock()

	return c.reload(ctx, "Logged in as "+name)
}

// Logout ends the session. On success the session and path are cleared and
// the login prompt is shown.
func (c *Controller) Logout(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.svc.Logout(ctx); err != nil {
		if api.IsUnauthorized(err) {
			c.handleUnauthorized()
			return err
		}

		c.logger.Error("logout failed", slog.String("error", err.Error()))
		c.setStatus(errorStatus("logout", err))

		return err
	}

	c.mu.Lock()
	c.username = ""
	c.currentPath = ""
	c.selection.Clear()
	c.entries = nil
	c.showLoginPromptLocked(StatusLoggedOut)
	c.mu.Unlock()

	return nil
}

// LoadFiles fetches the listing of the current directory.
func (c *Controller) LoadFiles(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.reload(ctx, StatusReady)
}

// NavigateTo makes path the current directory, clears the selection, and
// reloads the listing.
func (c *Controller) NavigateTo(ctx context.Context, path string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.navigateLocked(ctx, func(string) string { return CleanPath(path) })
}

// NavigateUp moves to the parent directory. At root it does nothing.
func (c *Controller) NavigateUp(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.CurrentPath() == "" {
		return nil
	}

	return c.navigateLocked(ctx, ParentPath)
}

// NavigateInto opens a directory entry of the current listing. The ".." row
// leads to the parent.
func (c *Controller) NavigateInto(ctx context.Context, entry api.FileEntry) error {
	if entry.Name == ParentName {
		return c.NavigateUp(ctx)
	}

	if !entry.IsDir {
		return fmt.Errorf("%w: %s", ErrNotADirectory, entry.Name)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.navigateLocked(ctx, func(current string) string {
		return JoinPath(current, entry.Name)
	})
}

// navigateLocked derives the new directory from the current one, clears the
// selection and reloads. Must be called with opMu held.
func (c *Controller) navigateLocked(ctx context.Context, target func(current string) string) error {
	c.mu.Lock()
	c.currentPath = target(c.currentPath)
	c.selection.Clear()
	c.mu.Unlock()

	return c.reload(ctx, StatusReady)
}

// ToggleSelection adds or removes name from the selection and returns the
// new count.
func (c *Controller) ToggleSelection(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection.Toggle(name)

	return c.selection.Len()
}

// DeleteFile asks for confirmation, then deletes entry from the current
// directory. A declined prompt returns ErrDeleteNotConfirm without a request.
func (c *Controller) DeleteFile(ctx context.Context, entry api.FileEntry) error {
	if !c.prompt.Confirm(fmt.Sprintf("Delete %q?", entry.Name)) {
		return ErrDeleteNotConfirm
	}

	return c.Delete(ctx, entry)
}

// Delete removes entry from the current directory without asking, for front
// ends that confirm on their own.
func (c *Controller) Delete(ctx context.Context, entry api.FileEntry) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	dir := c.CurrentPath()
	c.setStatus("Deleting...")

	err := c.svc.Delete(ctx, dir, entry.Name, entry.IsDir)
	c.record(ctx, history.Entry{Kind: history.KindDelete, RemoteDir: dir, Name: entry.Name}, err)

	if err != nil {
		return c.fail(ctx, "delete", err)
	}

	c.mu.Lock()
	if c.selection.Has(entry.Name) {
		c.selection.Toggle(entry.Name)
	}
	c.mu.Unlock()

	return c.reload(ctx, "Deleted "+entry.Name)
}

// DownloadFile streams entry from the current directory into destDir,
// writing to a .partial file that is renamed on completion. Returns the local
// path of the downloaded file.
func (c *Controller) DownloadFile(ctx context.Context, entry api.FileEntry, destDir string) (string, error) {
	if entry.IsDir || entry.Name == ParentName {
		c.prompt.Alert(entry.Name + " is a folder and cannot be downloaded")
		return "", fmt.Errorf("%w: %s", ErrNotAFile, entry.Name)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	dir := c.CurrentPath()
	localPath := filepath.Join(destDir, filepath.Base(entry.Name))

	c.setStatus("Downloading...")
	c.logger.Debug("download link", slog.String("url", c.svc.DownloadURL(dir, entry.Name)))

	n, err := c.downloadTo(ctx, dir, entry.Name, localPath)
	c.record(ctx, history.Entry{
		Kind: history.KindDownload, RemoteDir: dir, Name: entry.Name, LocalPath: localPath, Bytes: n,
	}, err)

	if err != nil {
		return "", c.fail(ctx, "download", err)
	}

	c.setStatus(fmt.Sprintf("Downloaded %s (%s)", entry.Name, FormatSize(n)))

	return localPath, nil
}

func (c *Controller) downloadTo(ctx context.Context, dir, name, localPath string) (int64, error) {
	partialPath := localPath + ".partial"

	f, err := os.Create(partialPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", partialPath, err)
	}

	n, err := c.svc.Download(ctx, dir, name, f)
	closeErr := f.Close()

	if err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", partialPath, closeErr)
	}

	if err != nil {
		os.Remove(partialPath)
		return n, err
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		os.Remove(partialPath)
		return n, fmt.Errorf("renaming download to %s: %w", localPath, err)
	}

	return n, nil
}

// CreateFolder creates name in the current directory. An empty (after
// trimming) name raises an alert and returns ErrEmptyFolderName without a
// request.
func (c *Controller) CreateFolder(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		c.prompt.Alert("Please enter a folder name")
		return ErrEmptyFolderName
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	dir := c.CurrentPath()
	c.setStatus("Creating folder...")

	err := c.svc.CreateFolder(ctx, dir, name)
	c.record(ctx, history.Entry{Kind: history.KindMkdir, RemoteDir: dir, Name: name}, err)

	if err != nil {
		return c.fail(ctx, "create folder", err)
	}

	return c.reload(ctx, "Folder "+name+" created")
}

// UploadFiles uploads local files into the current directory one at a time,
// in order. The first failure stops the batch: a 401 ends the session, any
// other error is reported with the name of the file that failed.
func (c *Controller) UploadFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	dir := c.CurrentPath()

	for i, p := range paths {
		name := norm.NFC.String(filepath.Base(p))
		c.setStatus(fmt.Sprintf("Uploading %s (%d/%d)...", name, i+1, len(paths)))

		n, err := c.uploadOne(ctx, dir, name, p)
		c.record(ctx, history.Entry{
			Kind: history.KindUpload, RemoteDir: dir, Name: name, LocalPath: p, Bytes: n,
		}, err)

		if err != nil {
			return c.fail(ctx, "upload of "+name, err)
		}
	}

	return c.reload(ctx, "Upload complete")
}

func (c *Controller) uploadOne(ctx context.Context, dir, name, localPath string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stating %s: %w", localPath, err)
	}

	if fi.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrNotAFile, localPath)
	}

	if c.maxUploadSize > 0 && fi.Size() > c.maxUploadSize {
		return 0, fmt.Errorf("%w: %s is %s, limit %s",
			ErrUploadTooLarge, localPath, FormatSize(fi.Size()), FormatSize(c.maxUploadSize))
	}

	if err := c.svc.Upload(ctx, dir, name, f); err != nil {
		return 0, err
	}

	c.logger.Debug("upload complete", slog.String("name", name), slog.Int64("size", fi.Size()))

	return fi.Size(), nil
}

// reload lists the current directory. Must be called with opMu held. On
// success the rows are replaced and the status becomes done.
func (c *Controller) reload(ctx context.Context, done string) error {
	c.mu.Lock()
	if c.username == "" {
		c.showLoginPromptLocked(StatusPleaseLogIn)
		c.mu.Unlock()

		return ErrNotLoggedIn
	}

	path := c.currentPath
	c.status = StatusLoading
	c.mu.Unlock()

	entries, err := c.svc.ListFiles(ctx, path)
	if err != nil {
		return c.fail(ctx, "loading file list", err)
	}

	c.mu.Lock()
	c.entries = entries
	c.loginPrompt = false
	c.status = done
	c.mu.Unlock()

	return nil
}

// fail applies the failure policy: 401 ends the session, anything else
// becomes an error status. The error is logged and returned.
func (c *Controller) fail(_ context.Context, action string, err error) error {
	if api.IsUnauthorized(err) {
		c.handleUnauthorized()
		return err
	}

	c.logger.Error(action+" failed", slog.String("error", err.Error()))
	c.setStatus(errorStatus(action, err))

	return err
}

func (c *Controller) handleUnauthorized() {
	c.logger.Info("session rejected by server, login required")

	c.mu.Lock()
	defer c.mu.Unlock()

	c.username = ""
	c.showLoginPromptLocked(StatusSessionExpired)
}

func (c *Controller) showLoginPromptLocked(status string) {
	c.loginPrompt = true
	c.status = status
}

func (c *Controller) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Controller) record(ctx context.Context, e history.Entry, opErr error) {
	if c.recorder == nil {
		return
	}

	e.Server = c.server
	e.Status = history.StatusOK

	if opErr != nil {
		e.Status = history.StatusFailed
		e.Error = opErr.Error()
	}

	// A canceled transfer is still recorded.
	if err := c.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("recording history failed", slog.String("error", err.Error()))
	}
}

// errorStatus renders an error for the status line. Server messages are
// preferred over Go error chains.
func errorStatus(action string, err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Sprintf("Error: %s failed: %s", action, apiErr.Message)
	}

	if errors.Is(err, api.ErrNetwork) {
		return fmt.Sprintf("Error: %s failed: server unreachable", action)
	}

	return fmt.Sprintf("Error: %s failed: %v", action, err)
}
