package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// DefaultUserAgent is sent when the caller does not configure one.
const DefaultUserAgent = "filemgr-go/0.1"

// maxErrorBody caps how much of an error response is read into APIError.
const maxErrorBody = 64 * 1024

// Client is an HTTP client for the file manager server API.
// Every request carries the session cookies held in the client's jar, the
// equivalent of a browser's credentials: "include". Requests are issued
// exactly once; failures are returned to the caller without retry.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates an API client for the server at baseURL
// (e.g. "http://localhost:8000"). If httpClient has no cookie jar, one is
// attached so the session cookie set by /api/login is replayed.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, userAgent string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parsing server URL %q: %w", baseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: server URL %q must use http or https", baseURL)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if httpClient.Jar == nil {
		jar, jarErr := cookiejar.New(nil)
		if jarErr != nil {
			return nil, fmt.Errorf("api: creating cookie jar: %w", jarErr)
		}

		// Copy so the caller's client is not mutated.
		hc := *httpClient
		hc.Jar = jar
		httpClient = &hc
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookies returns the session cookies currently held for the server.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// SetCookies seeds the jar, typically with cookies restored from disk.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

// endpoint builds an absolute URL for path with an optional query.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String()
}

// Do executes a single HTTP request against the API. The path is appended to
// the client's base URL. On 2xx the response is returned and the caller must
// close its body; any other status is converted to *APIError.
func (c *Client) Do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	return c.doURL(ctx, method, c.endpoint(path, nil), path, contentType, body)
}

func (c *Client) doURL(
	ctx context.Context, method, rawURL, logPath, contentType string, body io.Reader,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
		}

		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", logPath),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, logPath, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", logPath),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	defer resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    readErrorMessage(resp.Body),
		Err:        classifyStatus(resp.StatusCode),
	}

	c.logger.Debug("request rejected",
		slog.String("method", method),
		slog.String("path", logPath),
		slog.Int("status", resp.StatusCode),
		slog.String("message", apiErr.Message),
	)

	return nil, apiErr
}

// readErrorMessage extracts the "error" field from a JSON error body, falling
// back to the trimmed raw body.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "(failed to read response body)"
	}

	var env messageResponse
	if json.Unmarshal(data, &env) == nil && env.Error != "" {
		return env.Error
	}

	return strings.TrimSpace(string(data))
}

// postJSON sends v as a JSON body and decodes the response into out when out
// is non-nil. An empty 2xx body is accepted.
func (c *Client) postJSON(ctx context.Context, path string, v, out any) error {
	var body io.Reader = http.NoBody

	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("api: encoding %s request: %w", path, err)
		}

		body = bytes.NewReader(data)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body, path, out)
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, "", http.NoBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body, path, out)
}

func decodeBody(r io.Reader, path string, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}

	if err := json.NewDecoder(r).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}
