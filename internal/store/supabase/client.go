// Package supabase implements the store.Store interface over the Supabase
// REST endpoint (PostgREST).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smarttodo/internal/store"
	"smarttodo/internal/task"
)

// APITimeout is the per-call timeout for REST requests.
const APITimeout = 10 * time.Second

// Client implements store.Store against a Supabase project's REST endpoint.
type Client struct {
	baseURL string // https://<project>.supabase.co
	apiKey  string
	table   string
	timeout time.Duration
	http    *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTable overrides the backing table name.
func WithTable(name string) Option {
	return func(c *Client) {
		c.table = name
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
			c.http.Timeout = d
		}
	}
}

// New creates a Supabase REST client for the given project URL and anon key.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("supabase key is empty")
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		table:   store.TableName,
		timeout: APITimeout,
		http:    &http.Client{Timeout: APITimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns all tasks, newest first.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	body, err := c.do(ctx, http.MethodGet, q, nil, false)
	if err != nil {
		return nil, err
	}

	var tasks []task.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	return tasks, nil
}

// Insert creates a new task. The server assigns id and created_at.
func (c *Client) Insert(ctx context.Context, fields store.InsertFields) (task.Task, error) {
	payload := map[string]any{
		"title":    fields.Title,
		"priority": fields.Priority,
	}

	body, err := c.do(ctx, http.MethodPost, nil, payload, true)
	if err != nil {
		return task.Task{}, err
	}

	// With return=representation PostgREST answers with the inserted rows.
	var rows []task.Task
	if err := json.Unmarshal(body, &rows); err != nil {
		return task.Task{}, fmt.Errorf("decode inserted task: %w", err)
	}
	if len(rows) == 0 {
		return task.Task{}, &store.Error{Message: "insert returned no rows"}
	}
	return rows[0], nil
}

// Update sets the completion flag on a task, matched by id.
func (c *Client) Update(ctx context.Context, id string, fields store.UpdateFields) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	payload := map[string]any{"is_completed": fields.IsCompleted}
	_, err := c.do(ctx, http.MethodPatch, q, payload, false)
	return err
}

// Delete removes a task by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	_, err := c.do(ctx, http.MethodDelete, q, nil, false)
	return err
}

// do performs one REST call against the table endpoint and returns the raw
// response body. Non-2xx responses are decoded into a *store.Error.
func (c *Client) do(ctx context.Context, method string, query url.Values, payload any, returning bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/rest/v1/" + c.table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if returning {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &store.Error{Message: "request timed out"}
		}
		return nil, &store.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.Error{Message: "read response: " + err.Error(), Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(body, resp.StatusCode)
	}
	return body, nil
}

// decodeError turns a PostgREST error body into a *store.Error. The body is
// JSON like {"code":"42P01","message":"...","details":"...","hint":"..."}.
func decodeError(body []byte, status int) *store.Error {
	var pg struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal(body, &pg); err != nil || (pg.Code == "" && pg.Message == "") {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &store.Error{Message: msg, Status: status}
	}
	return &store.Error{
		Code:    pg.Code,
		Message: pg.Message,
		Hint:    pg.Hint,
		Status:  status,
	}
}
