// Package tui is the interactive terminal browser. It renders the
// controller's View and turns key presses into controller operations, which
// run as tea.Cmds so the UI keeps redrawing while a request is in flight.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/browser"
)

// Controller is the part of *browser.Controller the browser drives.
type Controller interface {
	View() browser.View
	CheckAuth(ctx context.Context) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	LoadFiles(ctx context.Context) error
	NavigateTo(ctx context.Context, path string) error
	NavigateUp(ctx context.Context) error
	NavigateInto(ctx context.Context, entry api.FileEntry) error
	ToggleSelection(name string) int
	Delete(ctx context.Context, entry api.FileEntry) error
	DownloadFile(ctx context.Context, entry api.FileEntry, destDir string) (string, error)
	CreateFolder(ctx context.Context, name string) error
	UploadFiles(ctx context.Context, paths []string) error
}

type mode int

const (
	modeList mode = iota
	modeConfirmDelete
	modeNewFolder
	modeUpload
	modeLogin
)

// doneMsg carries the outcome of a controller operation and the view it left.
type doneMsg struct {
	view browser.View
	err  error
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx         context.Context
	ctrl        Controller
	downloadDir string
	startPath   string

	view    browser.View
	cursor  int
	offset  int
	width   int
	height  int
	mode    mode
	busy    bool
	flash   string // local validation message, cleared on next key
	pending api.FileEntry

	folderInput textinput.Model
	uploadInput textinput.Model
	login       loginForm
}

// NewModel creates a browser over ctrl. Downloads go to downloadDir. A
// non-empty startPath is opened after the initial auth check.
func NewModel(ctx context.Context, ctrl Controller, downloadDir, startPath string) Model {
	fi := textinput.New()
	fi.Placeholder = "folder name"
	fi.CharLimit = 255

	ui := textinput.New()
	ui.Placeholder = "local paths, separated by spaces or commas"
	ui.CharLimit = 4096

	return Model{
		ctx:         ctx,
		ctrl:        ctrl,
		downloadDir: downloadDir,
		startPath:   startPath,
		view:        ctrl.View(),
		width:       100,
		height:      30,
		folderInput: fi,
		uploadInput: ui,
		login:       newLoginForm(),
	}
}

// Init checks the stored session and loads the first listing.
func (m Model) Init() tea.Cmd {
	start := m.startPath

	return m.run(func(ctx context.Context) error {
		if err := m.ctrl.CheckAuth(ctx); err != nil {
			return err
		}

		if start != "" {
			return m.ctrl.NavigateTo(ctx, start)
		}

		return nil
	})
}

// run executes fn off the UI goroutine and reports back with a doneMsg.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	ctrl := m.ctrl

	return func() tea.Msg {
		err := fn(ctx)
		return doneMsg{view: ctrl.View(), err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()

		return m, nil

	case doneMsg:
		return m.applyDone(msg), nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.mode {
		case modeList:
			return m.updateList(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modeNewFolder:
			return m.updateNewFolder(msg)
		case modeUpload:
			return m.updateUpload(msg)
		case modeLogin:
			return m.updateLogin(msg)
		}
	}

	return m, nil
}

func (m Model) applyDone(msg doneMsg) Model {
	if msg.view.Path != m.view.Path || msg.view.LoginPrompt != m.view.LoginPrompt {
		m.cursor = 0
		m.offset = 0
	}

	m.view = msg.view
	m.busy = false

	switch {
	case errors.Is(msg.err, browser.ErrEmptyFolderName):
		m.flash = "Please enter a folder name"
	case errors.Is(msg.err, browser.ErrNotAFile):
		m.flash = "Folders cannot be downloaded"
	}

	if m.cursor >= len(m.view.Rows) {
		m.cursor = max(0, len(m.view.Rows)-1)
	}

	m.clampOffset()

	return m
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	m.flash = ""

	if key == "q" {
		return m, tea.Quit
	}

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

		return m, nil

	case "down", "j":
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
			m.clampOffset()
		}

		return m, nil
	}

	// Everything below talks to the server; one request at a time.
	if m.busy {
		return m, nil
	}

	if m.view.LoginPrompt {
		return m.updateLoginPrompt(key)
	}

	row, hasRow := m.current()

	switch key {
	case "enter":
		if hasRow && row.Entry.IsDir {
			entry := row.Entry
			return m.start(func(ctx context.Context) error { return m.ctrl.NavigateInto(ctx, entry) })
		}

	case "backspace", "h":
		if m.view.Path != "" {
			return m.start(m.ctrl.NavigateUp)
		}

	case " ", "space":
		if hasRow && !row.Entry.IsDir {
			m.ctrl.ToggleSelection(row.Entry.Name)
			m.view = m.ctrl.View()
		}

	case "d":
		if hasRow && !row.Parent {
			entry := row.Entry
			dir := m.downloadDir

			return m.start(func(ctx context.Context) error {
				_, err := m.ctrl.DownloadFile(ctx, entry, dir)
				return err
			})
		}

	case "x":
		if hasRow && !row.Parent {
			m.pending = row.Entry
			m.mode = modeConfirmDelete
		}

	case "n":
		m.folderInput.SetValue("")
		m.folderInput.Focus()
		m.mode = modeNewFolder

		return m, textinput.Blink

	case "u":
		m.uploadInput.SetValue("")
		m.uploadInput.Focus()
		m.mode = modeUpload

		return m, textinput.Blink

	case "r":
		return m.start(m.ctrl.LoadFiles)

	case "L":
		return m.start(m.ctrl.Logout)
	}

	return m, nil
}

func (m Model) updateLoginPrompt(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "l", "enter":
		m.login.reset()
		m.mode = modeLogin

		return m, textinput.Blink

	case "r":
		return m.start(m.ctrl.CheckAuth)
	}

	return m, nil
}

func (m Model) start(fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, m.run(fn)
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		entry := m.pending
		m.mode = modeList
		m.pending = api.FileEntry{}

		return m.start(func(ctx context.Context) error { return m.ctrl.Delete(ctx, entry) })

	case "n", "N", "esc":
		m.mode = modeList
		m.pending = api.FileEntry{}
	}

	return m, nil
}

func (m Model) updateNewFolder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.folderInput.Blur()
		m.mode = modeList

		return m, nil

	case "enter":
		name := m.folderInput.Value()
		m.folderInput.Blur()
		m.mode = modeList

		return m.start(func(ctx context.Context) error { return m.ctrl.CreateFolder(ctx, name) })
	}

	var cmd tea.Cmd
	m.folderInput, cmd = m.folderInput.Update(msg)

	return m, cmd
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.uploadInput.Blur()
		m.mode = modeList

		return m, nil

	case "enter":
		paths := splitPaths(m.uploadInput.Value())
		m.uploadInput.Blur()
		m.mode = modeList

		if len(paths) == 0 {
			return m, nil
		}

		return m.start(func(ctx context.Context) error { return m.ctrl.UploadFiles(ctx, paths) })
	}

	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)

	return m, cmd
}

// splitPaths splits user input on commas and whitespace.
func splitPaths(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func (m Model) current() (browser.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return browser.Row{}, false
	}

	return m.view.Rows[m.cursor], true
}

// View renders the browser.
func (m Model) View() string {
	switch m.mode {
	case modeLogin:
		return m.viewLogin()
	case modeConfirmDelete:
		return m.viewModal("Delete", fmt.Sprintf("Delete %q?", m.pending.Name), "y: delete  n: cancel")
	case modeNewFolder:
		return m.viewModal("New folder", m.folderInput.View(), "Enter: create  Esc: cancel")
	case modeUpload:
		return m.viewModal("Upload to /"+m.view.Path, m.uploadInput.View(), "Enter: upload  Esc: cancel")
	}

	if m.view.LoginPrompt {
		return m.viewLoginPrompt()
	}

	var b strings.Builder

	title := titleStyle.Render("filemgr")
	where := dimStyle.Render(fmt.Sprintf("  %s  /%s", m.view.Username, m.view.Path))
	b.WriteString(title + where + "\n")
	b.WriteString(m.renderHeader() + "\n")

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.view.Rows))

	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.view.Rows[i], i == m.cursor) + "\n")
	}

	if len(m.view.Rows) == 0 {
		b.WriteString(dimStyle.Render("  (empty folder)") + "\n")
		end = m.offset + 1
	}

	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(helpStyle.Render(
		"  enter: open  ⌫: up  space: select  d: download  x: delete  n: new folder  u: upload  r: refresh  L: logout  q: quit"))

	return b.String()
}

func (m Model) renderStatus() string {
	status := m.view.Status
	if m.busy {
		status += " ..."
	}

	line := statusBarStyle.Render(status) + "  " + dimStyle.Render(m.view.SelectedLabel())

	if m.flash != "" {
		line += "  " + errorStyle.Render(m.flash)
	}

	return line
}

func (m Model) viewLoginPrompt() string {
	content := fmt.Sprintf("%s\n\n%s\n\n%s",
		boxTitleStyle.Render("filemgr"),
		m.view.Status,
		dimStyle.Render("l: log in  r: retry  q: quit"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

func (m Model) viewModal(title, body, help string) string {
	content := fmt.Sprintf("%s\n\n%s\n\n%s", boxTitleStyle.Render(title), body, dimStyle.Render(help))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

type colWidths struct {
	mark     int
	name     int
	kind     int
	size     int
	modified int
}

func (m Model) colWidths() colWidths {
	w := colWidths{mark: 3, kind: 18, size: 10, modified: 19}

	used := w.mark + w.kind + w.size + w.modified + 6
	w.name = max(m.width-used, 20)

	return w
}

func (m Model) renderHeader() string {
	w := m.colWidths()
	cols := []string{
		pad("", w.mark),
		pad("Name", w.name),
		pad("Type", w.kind),
		pad("Size", w.size),
		pad("Modified", w.modified),
	}

	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(r browser.Row, atCursor bool) string {
	w := m.colWidths()

	mark := ""
	if r.Selected {
		mark = "[x]"
	}

	name := r.Entry.Name
	if r.Entry.IsDir && !r.Parent {
		name += "/"
	}

	plain := []string{
		pad(mark, w.mark),
		pad(name, w.name),
		pad(r.Type, w.kind),
		pad(r.Size, w.size),
		pad(r.Modified, w.modified),
	}

	if atCursor {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, cursorStyle.Render(strings.Join(plain, " ")))
	}

	styled := append([]string(nil), plain...)
	if r.Selected {
		styled[0] = markStyle.Render(plain[0])
	}

	if r.Entry.IsDir {
		styled[1] = folderStyle.Render(plain[1])
	}

	return normalStyle.Render(strings.Join(styled, " "))
}

func (m Model) visibleRows() int {
	// title, header, status, help
	return max(m.height-4, 1)
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}

	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}

	if m.offset < 0 {
		m.offset = 0
	}
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}

	return s + strings.Repeat(" ", width-len(runes))
}
