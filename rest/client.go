// Package rest implements botflow.Store against the HTTP API in server/.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BotXPertUPC/botflow"
)

// Client talks to a botflow API server. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the {"error": "..."} envelope the server returns on failure.
type apiError struct {
	Error string `json:"error"`
}

// do issues a request and decodes a JSON body into out when out is non-nil.
// notFound is returned on a 404; 409 always maps to botflow.ErrConflict.
func (c *Client) do(ctx context.Context, method, path string, in, out any, notFound error) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case resp.StatusCode == http.StatusConflict:
		return botflow.ErrConflict
	case resp.StatusCode >= 400:
		var ae apiError
		if json.NewDecoder(resp.Body).Decode(&ae) == nil && ae.Error != "" {
			return fmt.Errorf("rest: %s %s: %s", method, path, ae.Error)
		}
		return fmt.Errorf("rest: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("rest: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// CreateSchema asks the server to create its tables.
func (c *Client) CreateSchema(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/schema", nil, nil, nil)
}

// DropSchema asks the server to drop its tables.
func (c *Client) DropSchema(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/schema", nil, nil, nil)
}

// CreateFlow creates a botflow record and returns its assigned id.
func (c *Client) CreateFlow(ctx context.Context, f *botflow.Botflow) (int, error) {
	var created botflow.Botflow
	if err := c.do(ctx, http.MethodPost, "/botflows", f, &created, nil); err != nil {
		return 0, err
	}
	f.ID = created.ID
	return created.ID, nil
}

// GetFlow fetches a botflow record.
func (c *Client) GetFlow(ctx context.Context, id int) (*botflow.Botflow, error) {
	var f botflow.Botflow
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/botflows/%d", id), nil, &f, botflow.ErrFlowNotFound)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFlow replaces a botflow record.
func (c *Client) UpdateFlow(ctx context.Context, f *botflow.Botflow) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/botflows/%d", f.ID), f, nil, botflow.ErrFlowNotFound)
}

// DeleteFlow removes a botflow record and everything attached to it.
func (c *Client) DeleteFlow(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/botflows/%d", id), nil, nil, nil)
}

// ListFlows returns all botflow records.
func (c *Client) ListFlows(ctx context.Context) ([]botflow.Botflow, error) {
	var flows []botflow.Botflow
	if err := c.do(ctx, http.MethodGet, "/botflows", nil, &flows, nil); err != nil {
		return nil, err
	}
	return flows, nil
}

// ListFlowNodes returns a flow's persisted nodes.
func (c *Client) ListFlowNodes(ctx context.Context, flowID int) ([]botflow.PersistedNode, error) {
	var nodes []botflow.PersistedNode
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/botflows/%d/nodes", flowID), nil, &nodes, botflow.ErrFlowNotFound)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// CreateNode stores a node under its caller-supplied id. A conflicting id
// surfaces as botflow.ErrConflict so callers can fall back to UpdateNode.
func (c *Client) CreateNode(ctx context.Context, n *botflow.PersistedNode) error {
	return c.do(ctx, http.MethodPost, "/nodes", n, nil, nil)
}

// UpdateNode replaces a node record.
func (c *Client) UpdateNode(ctx context.Context, n *botflow.PersistedNode) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/nodes/%d", n.ID), n, nil, botflow.ErrPersistedNodeNotFound)
}

// DeleteNode removes a node. The server treats absent ids as success.
func (c *Client) DeleteNode(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/nodes/%d", id), nil, nil, nil)
}

// ListOptions returns every list option.
func (c *Client) ListOptions(ctx context.Context) ([]botflow.ListOption, error) {
	var options []botflow.ListOption
	if err := c.do(ctx, http.MethodGet, "/list-options", nil, &options, nil); err != nil {
		return nil, err
	}
	return options, nil
}

// CreateOption stores a list option and returns its assigned id.
func (c *Client) CreateOption(ctx context.Context, o *botflow.ListOption) (int, error) {
	var created botflow.ListOption
	if err := c.do(ctx, http.MethodPost, "/list-options", o, &created, nil); err != nil {
		return 0, err
	}
	o.ID = created.ID
	return created.ID, nil
}

// DeleteOption removes a list option. Absent ids are not an error.
func (c *Client) DeleteOption(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/list-options/%d", id), nil, nil, nil)
}
