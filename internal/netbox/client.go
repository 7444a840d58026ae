// Package netbox is a small REST client for the NetBox SSOT. It only lists,
// reads and partially updates objects; it never creates or deletes them.
package netbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/netreconcile/internal/logger"
)

// Config holds the connection settings for a NetBox instance
type Config struct {
	URL       string
	Token     string
	VerifySSL bool
	Timeout   time.Duration
	PageSize  int
}

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netbox %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the NetBox REST API. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	token    string
	pageSize int
	http     *http.Client
	logger   *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a NetBox client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("netbox url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid netbox url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		baseURL:  base,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:   logger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{"component": "netbox"})
	return c, nil
}

// List returns every object under path, following pagination links
func (c *Client) List(ctx context.Context, path string, query url.Values) ([]map[string]any, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	next := c.resolve(path, q)

	var all []map[string]any
	for next != "" {
		var page struct {
			Count   int              `json:"count"`
			Next    *string          `json:"next"`
			Results []map[string]any `json:"results"`
		}
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		next = ""
		if page.Next != nil && *page.Next != "" {
			u, err := url.Parse(*page.Next)
			if err != nil {
				return nil, fmt.Errorf("invalid pagination link: %w", err)
			}
			next = c.resolve(u.Path, u.Query())
		}
	}
	if all == nil {
		all = []map[string]any{}
	}
	return all, nil
}

// Get reads a single object by ID
func (c *Client) Get(ctx context.Context, endpoint string, id int) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, c.resolve(objectPath(endpoint, id), nil), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Patch sends a partial update to <endpoint><id>/ and returns the updated object
func (c *Client) Patch(ctx context.Context, endpoint string, id int, payload map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPatch, c.resolve(objectPath(endpoint, id), nil), payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PatchField updates exactly one attribute of an object
func (c *Client) PatchField(ctx context.Context, endpoint string, id int, field string, value any) (map[string]any, error) {
	return c.Patch(ctx, endpoint, id, FieldPayload(field, value))
}

var (
	customFields    = map[string]bool{"software_version": true}
	referenceFields = map[string]bool{"lag": true, "vrf": true}
)

// FieldPayload builds the single-field PATCH body. Custom fields nest under
// custom_fields and related objects are addressed by name.
func FieldPayload(field string, value any) map[string]any {
	switch {
	case customFields[field]:
		return map[string]any{"custom_fields": map[string]any{field: value}}
	case referenceFields[field]:
		if value == nil {
			return map[string]any{field: nil}
		}
		return map[string]any{field: map[string]any{"name": value}}
	default:
		return map[string]any{field: value}
	}
}

func objectPath(endpoint string, id int) string {
	return strings.TrimRight(endpoint, "/") + "/" + strconv.Itoa(id) + "/"
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	if !strings.HasPrefix(path, u.Path) {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	} else {
		u.Path = path
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	c.logger.Debug("%s %s", method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("netbox %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       req.URL.Path,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
