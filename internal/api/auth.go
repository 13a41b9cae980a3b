package api

import (
	"context"
	"fmt"
	"log/slog"
)

// UserInfo returns the identity bound to the current session cookie.
// A missing or expired session yields ErrUnauthorized.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.getJSON(ctx, "/api/user/info", &info); err != nil {
		return nil, fmt.Errorf("api: fetching user info: %w", err)
	}

	return &info, nil
}

// Login authenticates with username and password. On success the server sets
// the session cookie, which the client's jar keeps for later requests.
// The returned name is the username echoed by the server.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	c.logger.Info("logging in", slog.String("username", username))

	var out messageResponse
	if err := c.postJSON(ctx, "/api/login", loginRequest{Username: username, Password: password}, &out); err != nil {
		return "", fmt.Errorf("api: logging in: %w", err)
	}

	if out.Username == "" {
		return username, nil
	}

	return out.Username, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	c.logger.Info("logging out")

	if err := c.postJSON(ctx, "/api/logout", nil, nil); err != nil {
		return fmt.Errorf("api: logging out: %w", err)
	}

	return nil
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, password, email string) (string, error) {
	c.logger.Info("registering account", slog.String("username", username))

	var out messageResponse

	req := registerRequest{Username: username, Password: password, Email: email}
	if err := c.postJSON(ctx, "/api/register", req, &out); err != nil {
		return "", fmt.Errorf("api: registering %q: %w", username, err)
	}

	return out.Message, nil
}

// ForgotPassword asks the server to email a password reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.postJSON(ctx, "/api/forgot-password", forgotPasswordRequest{Email: email}, &out); err != nil {
		return "", fmt.Errorf("api: requesting password reset: %w", err)
	}

	return out.Message, nil
}

// ResetPassword sets a new password using a token from ForgotPassword.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var out messageResponse
	if err := c.postJSON(ctx, "/api/reset-password", resetPasswordRequest{Token: token, NewPassword: newPassword}, &out); err != nil {
		return "", fmt.Errorf("api: resetting password: %w", err)
	}

	return out.Message, nil
}
