package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/filemgr-go/internal/browser"
)

// Credential flags shared by login, register and reset-password.
var (
	flagUsername      string
	flagEmail         string
	flagPasswordStdin bool
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}

	cmd.Flags().StringVarP(&flagUsername, "username", "u", "", "username (prompted if omitted)")
	cmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove saved cookies",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the saved session belongs to",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}

	cmd.Flags().StringVarP(&flagUsername, "username", "u", "", "username (prompted if omitted)")
	cmd.Flags().StringVar(&flagEmail, "email", "", "email address (prompted if omitted)")
	cmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func newForgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset token by email",
		Args:  cobra.ExactArgs(1),
		RunE:  runForgotPassword,
	}
}

func newResetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE:  runResetPassword,
	}

	cmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

type whoamiOutput struct {
	Server   string `json:"server"`
	Username string `json:"username,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// readPassword reads from stdin as a plain line with --password-stdin,
// otherwise from the terminal without echo.
func readPassword(in *bufio.Reader, out io.Writer, label string) (string, error) {
	if flagPasswordStdin {
		return readLine(in, io.Discard, label)
	}

	return readSecret(in, out, label)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	sess, logger, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	errOut := cmd.ErrOrStderr()

	username := flagUsername
	if username == "" {
		if username, err = readLine(in, errOut, "Username: "); err != nil {
			return err
		}
	}

	password, err := readPassword(in, errOut, "Password: ")
	if err != nil {
		return err
	}

	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	ctx := cmd.Context()
	ctrl := sess.Controller(ctx, newTerminalPrompter(false))

	if err := ctrl.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := sess.Save(ctrl.Username()); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	logger.Info("login successful", slog.String("username", ctrl.Username()))

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), whoamiOutput{
			Server:   sess.Resolved.ServerURL,
			Username: ctrl.Username(),
			LoggedIn: true,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s on %s\n", ctrl.Username(), sess.Resolved.ServerURL)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	ctrl := sess.Controller(ctx, newTerminalPrompter(false))

	// A session the server already forgot still counts as logged out.
	logoutErr := ctrl.Logout(ctx)
	if logoutErr != nil && !errors.Is(sess.Finish(logoutErr), errNotLoggedIn) {
		return fmt.Errorf("logout failed: %w", logoutErr)
	}

	if err := sess.Clear(); err != nil {
		return err
	}

	statusf(flagQuiet, "%s\n", browser.StatusLoggedOut)

	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	out := whoamiOutput{Server: sess.Resolved.ServerURL}

	ctrl, err := sess.Connect(cmd.Context(), newTerminalPrompter(false))

	switch {
	case errors.Is(err, errNotLoggedIn):
	case err != nil:
		return err
	default:
		out.Username = ctrl.Username()
		out.LoggedIn = true
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}

	if !out.LoggedIn {
		fmt.Fprintf(cmd.OutOrStdout(), "Not logged in to %s\n", out.Server)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s on %s\n", out.Username, out.Server)

	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	errOut := cmd.ErrOrStderr()

	username, email := flagUsername, flagEmail

	if username == "" {
		if username, err = readLine(in, errOut, "Username: "); err != nil {
			return err
		}
	}

	if email == "" {
		if email, err = readLine(in, errOut, "Email: "); err != nil {
			return err
		}
	}

	password, err := readPassword(in, errOut, "Password: ")
	if err != nil {
		return err
	}

	msg, err := sess.Client.Register(cmd.Context(), username, password, email)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	return printMessage(cmd, msg)
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	return withClientMessage(cmd, func(ctx context.Context, sess *Session) (string, error) {
		return sess.Client.ForgotPassword(ctx, args[0])
	})
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())

	password, err := readPassword(in, cmd.ErrOrStderr(), "New password: ")
	if err != nil {
		return err
	}

	if password == "" {
		return errors.New("new password is required")
	}

	return withClientMessage(cmd, func(ctx context.Context, sess *Session) (string, error) {
		return sess.Client.ResetPassword(ctx, args[0], password)
	})
}

// withClientMessage runs a session-less account call and prints the
// server's message.
func withClientMessage(cmd *cobra.Command, fn func(context.Context, *Session) (string, error)) error {
	sess, _, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	msg, err := fn(cmd.Context(), sess)
	if err != nil {
		return err
	}

	return printMessage(cmd, msg)
}

func printMessage(cmd *cobra.Command, msg string) error {
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), messageOutput{Message: msg})
	}

	fmt.Fprintln(cmd.OutOrStdout(), msg)

	return nil
}
