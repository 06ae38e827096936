// Package apiclient is a client for the NTM control API. The configuration
// synchronizer uses it to fetch rendered proxies and the admin commands use
// it to manage the registry remotely.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/supervisor"
)

// TokenHeader carries the shared secret on every request.
const TokenHeader = "X-NTM-Token"

// maxBodyBytes bounds the responses read from the server.
const maxBodyBytes = 4 << 20

// ErrResponseTooLarge is returned when a response body exceeds maxBodyBytes.
var ErrResponseTooLarge = errors.New("response too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("control API returned status %d: %s", e.StatusCode, e.Message)
}

// Status is the response of GET /status.
type Status struct {
	Role       string           `json:"role"`
	Clients    int              `json:"clients"`
	Proxies    int              `json:"proxies"`
	Supervisor supervisor.Stats `json:"supervisor"`
}

// Client talks to one control API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API at baseURL ("http://host:port").
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListClients returns every registered client.
func (c *Client) ListClients(ctx context.Context) ([]registry.Client, error) {
	var clients []registry.Client
	if err := c.doJSON(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// CreateClient registers a client with no proxies.
func (c *Client) CreateClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPut, "/client", map[string]string{"id": id}, nil)
}

// DeleteClient removes a client and its proxies.
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/client/"+url.PathEscape(id), nil, nil)
}

// AddProxy adds a proxy to a client.
func (c *Client) AddProxy(ctx context.Context, id string, p registry.Proxy) error {
	if p.Flags == nil {
		p.Flags = []string{}
	}
	return c.doJSON(ctx, http.MethodPut, "/client/"+url.PathEscape(id)+"/proxy", p, nil)
}

// RemoveProxy removes a named proxy from a client.
func (c *Client) RemoveProxy(ctx context.Context, id, name string) error {
	path := "/client/" + url.PathEscape(id) + "/proxy/" + url.PathEscape(name)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ClientConfig fetches the rendered proxies section of a client. Surrounding
// whitespace is trimmed.
func (c *Client) ClientConfig(ctx context.Context, id string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/client/"+url.PathEscape(id)+"/config", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("%w: client config exceeds %d bytes", ErrResponseTooLarge, maxBodyBytes)
	}
	return strings.TrimSpace(string(body)), nil
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// do sends a request and returns the response for 2xx statuses. Other
// statuses are returned as *StatusError with the body closed.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path + "?" + url.Values{"token": {c.token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(TokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending control API request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, stripToken(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// stripToken removes the query string from url.Error messages so the secret
// does not end up in logs.
func stripToken(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	i := strings.IndexByte(uerr.URL, '?')
	if i < 0 {
		return err
	}
	stripped := *uerr
	stripped.URL = uerr.URL[:i]
	return &stripped
}
