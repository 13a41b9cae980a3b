package browser

// Prompter asks the user for confirmation and shows blocking alerts.
// Front ends supply their own: the CLI reads from the terminal, tests script
// the answers.
type Prompter interface {
	Confirm(message string) bool
	Alert(message string)
}

// denyPrompter refuses every confirmation. It is the default so that a
// controller built without a prompter never deletes anything unasked.
type denyPrompter struct{}

func (denyPrompter) Confirm(string) bool { return false }

func (denyPrompter) Alert(string) {}

// AutoConfirm accepts every confirmation and drops alerts. Used when the
// user has already confirmed (--yes, TUI modal).
type AutoConfirm struct{}

// Confirm always returns true.
func (AutoConfirm) Confirm(string) bool { return true }

// Alert does nothing.
func (AutoConfirm) Alert(string) {}
