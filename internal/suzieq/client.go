// Package suzieq collects live state from a SuzieQ REST server
package suzieq

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
)

// Config holds the SuzieQ REST endpoint settings
type Config struct {
	URL       string
	Token     string
	VerifySSL bool
	Timeout   time.Duration
}

var tables = map[models.EntityType]string{
	models.EntityInterface: "interface",
	models.EntityDevice:    "device",
	models.EntityIPAddress: "address",
}

// Client queries SuzieQ tables with the show verb
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a SuzieQ client
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("suzieq url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid suzieq url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.DefaultLogger
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:  log.WithFields(map[string]interface{}{"component": "suzieq"}),
	}, nil
}

// Source identifies SuzieQ as the producer of live values
func (c *Client) Source() models.DiffSource {
	return models.SourceSuzieQ
}

// Collect runs "<table> show" for one device and returns the decoded rows
func (c *Client) Collect(ctx context.Context, device string, et models.EntityType) (any, error) {
	table, ok := tables[et]
	if !ok {
		return nil, fmt.Errorf("suzieq: unsupported entity type %s", et)
	}

	q := url.Values{}
	q.Set("hostname", device)
	if c.token != "" {
		q.Set("access_token", c.token)
	}
	endpoint := fmt.Sprintf("%s/api/v2/%s/show?%s", c.baseURL, table, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET %s/show hostname=%s", table, device)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suzieq %s show: %w", table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read suzieq response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suzieq %s show: status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode suzieq response: %w", err)
	}
	return out, nil
}
