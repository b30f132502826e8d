// Package remote is a client for the bulk graph protocol of a graph
// database server: node creation returns a handle, and relationships are
// created between handles.
package remote

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

	"github.com/dd0wney/cluso-graphize/pkg/metrics"
)

var (
	ErrInvalidAddress = errors.New("invalid server address")
	ErrMissingHandle  = errors.New("server returned no node id")
)

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Message)
}

// Client talks to a graph server over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenSource
	apiKey     string
	metrics    *metrics.Registry
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource authenticates with a bearer token from ts
func WithTokenSource(ts *TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithAPIKey authenticates with an X-API-Key header
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithMetrics records call counts and latencies in m
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the server at address. A bare host:port
// is treated as http.
func NewClient(address string, opts ...Option) (*Client, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateNode creates a node and returns its handle
func (c *Client) CreateNode(ctx context.Context, labels []string, properties map[string]any) (Handle, error) {
	var resp NodeResponse
	if err := c.post(ctx, "create_node", "/nodes", NodeRequest{Labels: labels, Properties: properties}, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, ErrMissingHandle
	}
	return Handle(resp.ID), nil
}

// CreateRelationship creates a relationship labelled label from one node to another
func (c *Client) CreateRelationship(ctx context.Context, from, to Handle, label string) error {
	req := EdgeRequest{
		FromNodeID: uint64(from),
		ToNodeID:   uint64(to),
		Type:       label,
		Weight:     1,
	}
	return c.post(ctx, "create_relationship", "/edges", req, nil)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRemoteCall(op, status, time.Since(start))
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	switch {
	case c.tokens != nil:
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	serr := &StatusError{Op: op, Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		serr.Message = body.Message
	} else {
		serr.Message = strings.TrimSpace(string(data))
	}
	return serr
}
