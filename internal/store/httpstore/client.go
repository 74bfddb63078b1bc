// Package httpstore implements store.Backend as a client of the element REST
// API served by internal/server.
package httpstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Client talks to the /api/<resource> endpoints.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. A client passed with
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var _ store.Backend = (*Client)(nil)

// errorBody mirrors the JSON error responses of the API.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (c *Client) List(ctx context.Context, k types.Kind) ([]types.Record, error) {
	var out []types.Record
	if err := c.do(ctx, k, "", http.MethodGet, c.path(k), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, k types.Kind, id string) (types.Record, error) {
	var out types.Record
	err := c.do(ctx, k, id, http.MethodGet, c.path(k, id), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, k types.Kind, fields map[string]any) (types.Record, error) {
	body := types.Patch(fields).Sanitize()
	var out types.Record
	err := c.do(ctx, k, "", http.MethodPost, c.path(k), body, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, k types.Kind, id string, patch types.Patch) (types.Record, error) {
	var out types.Record
	err := c.do(ctx, k, id, http.MethodPatch, c.path(k, id), patch.Sanitize(), &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, k types.Kind, id string) error {
	return c.do(ctx, k, id, http.MethodDelete, c.path(k, id), nil, nil)
}

func (c *Client) Reorder(ctx context.Context, k types.Kind, entries []store.OrderEntry) error {
	return c.do(ctx, k, "", http.MethodPut, c.path(k, "reorder"), store.ReorderRequest{Items: entries}, nil)
}

// Schema fetches the registry and icon catalog served by GET /api/schema into v.
func (c *Client) Schema(ctx context.Context, v any) error {
	return c.do(ctx, "", "", http.MethodGet, c.base.JoinPath("api", "schema"), nil, v)
}

func (c *Client) path(k types.Kind, elem ...string) *url.URL {
	return c.base.JoinPath(append([]string{"api", k.Resource()}, elem...)...)
}

func (c *Client) do(ctx context.Context, k types.Kind, id, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp, k, id)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}

// decodeError maps an error response onto the store error taxonomy.
func decodeError(resp *http.Response, k types.Kind, id string) error {
	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		if id != "" {
			return &store.NotFoundError{Kind: k, ID: id}
		}
	case http.StatusBadRequest:
		if eb.Code == "VALIDATION_ERROR" {
			return &store.ValidationError{Fields: eb.Fields}
		}
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrConflict, eb.Error)
	}
	return fmt.Errorf("%s: %s", resp.Status, eb.Error)
}
