package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// login form field indices
const (
	fieldUser = iota
	fieldPass
	fieldCount
)

type loginForm struct {
	user  textinput.Model
	pass  textinput.Model
	focus int
}

func newLoginForm() loginForm {
	u := textinput.New()
	u.Placeholder = "username"
	u.CharLimit = 100

	p := textinput.New()
	p.Placeholder = "password"
	p.CharLimit = 200
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'

	return loginForm{user: u, pass: p}
}

func (f *loginForm) reset() {
	f.user.SetValue("")
	f.pass.SetValue("")
	f.focus = fieldUser
	f.user.Focus()
	f.pass.Blur()
}

func (f *loginForm) focusNext(step int) {
	f.focus = (f.focus + step + fieldCount) % fieldCount

	if f.focus == fieldUser {
		f.user.Focus()
		f.pass.Blur()
	} else {
		f.pass.Focus()
		f.user.Blur()
	}
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login

	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil

	case "tab", "down":
		f.focusNext(1)
		return m, nil

	case "shift+tab", "up":
		f.focusNext(-1)
		return m, nil

	case "enter":
		if f.focus == fieldUser {
			f.focusNext(1)
			return m, nil
		}

		username, password := f.user.Value(), f.pass.Value()
		if username == "" || password == "" {
			m.flash = "Username and password are required"
			return m, nil
		}

		m.mode = modeList
		m.flash = ""
		f.pass.SetValue("")

		return m.start(func(ctx context.Context) error { return m.ctrl.Login(ctx, username, password) })
	}

	var cmd tea.Cmd
	if f.focus == fieldUser {
		f.user, cmd = f.user.Update(msg)
	} else {
		f.pass, cmd = f.pass.Update(msg)
	}

	return m, cmd
}

func (m Model) viewLogin() string {
	f := m.login

	content := fmt.Sprintf("%s\n\n%s  %s\n\n%s  %s\n\n%s",
		boxTitleStyle.Render("Log in"),
		fieldLabel("User:", f.focus == fieldUser), f.user.View(),
		fieldLabel("Pass:", f.focus == fieldPass), f.pass.View(),
		dimStyle.Render("Enter: log in  Tab: next  Esc: cancel"),
	)

	if m.flash != "" {
		content += "\n\n" + errorStyle.Render(m.flash)
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

func fieldLabel(label string, focused bool) string {
	style := lipgloss.NewStyle().Width(6)
	if focused {
		style = style.Bold(true).Foreground(lipgloss.Color("39"))
	} else {
		style = style.Foreground(lipgloss.Color("252"))
	}

	return style.Render(label)
}
