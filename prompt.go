package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/tonimelisma/filemgr-go/internal/browser"
)

// terminalPrompter asks confirmations on the terminal. Without a terminal
// on stdin it refuses every confirmation unless assumeYes is set.
type terminalPrompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
}

// newTerminalPrompter returns a prompter reading stdin and writing stderr.
func newTerminalPrompter(assumeYes bool) *terminalPrompter {
	return &terminalPrompter{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: stdinIsTerminal(),
		assumeYes:   assumeYes,
	}
}

var _ browser.Prompter = (*terminalPrompter)(nil)

func (p *terminalPrompter) Confirm(message string) bool {
	if p.assumeYes {
		return true
	}

	if !p.interactive {
		fmt.Fprintf(p.out, "%s refusing without --yes (stdin is not a terminal)\n", message)
		return false
	}

	fmt.Fprintf(p.out, "%s [y/N] ", message)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *terminalPrompter) Alert(message string) {
	fmt.Fprintln(p.out, message)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// readLine prints label and reads one trimmed line from in.
func readLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}

	return strings.TrimSpace(line), nil
}

// readSecret reads a password without echo on a terminal. Piped input is
// read as a plain line so scripts can feed it.
func readSecret(in *bufio.Reader, out io.Writer, label string) (string, error) {
	if !stdinIsTerminal() {
		return readLine(in, io.Discard, label)
	}

	fmt.Fprint(out, label)

	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(b), nil
}
