package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCookieName is the cookie the backend stores the session token in
	DefaultCookieName = "admin_token"
	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 16 << 20
)

// Client talks to the admin backend's JSON API
type Client struct {
	baseURL    *url.URL
	token      string
	cookieName string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCookieName overrides the name of the session cookie read at login
func WithCookieName(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.cookieName = name
		}
	}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, &ValidationError{Field: "base_url", Msg: "must not be empty"}
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, &ValidationError{Field: "base_url", Msg: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ValidationError{Field: "base_url", Msg: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}

	c := &Client{
		baseURL:    u,
		cookieName: DefaultCookieName,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Token returns the current session token
func (c *Client) Token() string {
	return c.token
}

// SetToken replaces the session token
func (c *Client) SetToken(token string) {
	c.token = token
}

// do sends one request. Non-2xx answers and transport failures become a
// *NetworkError. A 2xx body that is not valid JSON is logged and out is left
// at its zero value.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (*http.Response, error) {
	endpoint := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	LogDebug("%s %s (request %s)", method, path, req.Header.Get("X-Request-ID"))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, &NetworkError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := errorDetail(data, resp.StatusCode)
		return resp, &NetworkError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     detail,
			Err:        errors.New(detail),
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			LogWarn("%v", &ParseError{Source: "api", Key: path, Err: err})
		}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, "", out)
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, "", out)
	return err
}

// errorDetail extracts the message of an error body: detail, then error,
// then message.
func errorDetail(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			switch v := payload[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case nil:
			default:
				// FastAPI validation errors put a list here
				if b, err := json.Marshal(v); err == nil {
					return string(b)
				}
			}
		}
	}
	return fmt.Sprintf("request failed (HTTP %d)", status)
}
