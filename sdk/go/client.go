// Package fundlinesdk is a minimal Go client for the Fundline HTTP API. It
// also satisfies the board gateway, so a drag controller can commit moves
// straight through it.
package fundlinesdk

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

	"github.com/sirupsen/logrus"

	"fundline/internal/board"
	"fundline/internal/domain"
)

// Client is a minimal Fundline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

var _ board.Gateway = (*Client)(nil)

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Board is the grouped board view.
type Board struct {
	Columns     map[string][]domain.Task `json:"columns"`
	Quarantined []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
	} `json:"quarantined,omitempty"`
}

func (c *Client) GetBoard(ctx context.Context) (Board, error) {
	var resp Board
	err := c.do(ctx, http.MethodGet, "v1/board", nil, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var resp []domain.Task
	err := c.do(ctx, http.MethodGet, "v1/tasks", nil, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodGet, "v1/tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, title, status, priority string) (domain.Task, error) {
	body := map[string]any{"title": title}
	if status != "" {
		body["status"] = status
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp domain.Task
	err := c.do(ctx, http.MethodPost, "v1/tasks", body, &resp)
	return resp, err
}

// MoveTask asks the server to run the full move in one transaction.
func (c *Client) MoveTask(ctx context.Context, taskID, overID string) ([]domain.Task, error) {
	var resp struct {
		Tasks []domain.Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodPost, "v1/tasks/"+url.PathEscape(taskID)+"/move",
		map[string]any{"over_id": overID}, &resp)
	return resp.Tasks, err
}

func (c *Client) AddComment(ctx context.Context, taskID, content string) (domain.Comment, error) {
	var resp domain.Comment
	err := c.do(ctx, http.MethodPost, "v1/tasks/"+url.PathEscape(taskID)+"/comments",
		map[string]any{"content": content}, &resp)
	return resp, err
}

func (c *Client) TaskActivity(ctx context.Context, taskID string) ([]domain.ActivityEntry, error) {
	var resp []domain.ActivityEntry
	err := c.do(ctx, http.MethodGet, "v1/tasks/"+url.PathEscape(taskID)+"/activity", nil, &resp)
	return resp, err
}

// UpdateTaskPlacement implements the board gateway over the placement
// endpoint.
func (c *Client) UpdateTaskPlacement(ctx context.Context, id string, status domain.Status, position int) error {
	return c.do(ctx, http.MethodPut, "v1/tasks/"+url.PathEscape(id)+"/placement",
		map[string]any{"status": string(status), "position": position}, nil)
}

// AppendActivity implements the board gateway over the activity endpoint.
func (c *Client) AppendActivity(ctx context.Context, taskID, action, fieldName, oldValue, newValue string) error {
	body := map[string]any{"action": action}
	if fieldName != "" {
		body["field_name"] = fieldName
	}
	if oldValue != "" {
		body["old_value"] = oldValue
	}
	if newValue != "" {
		body["new_value"] = newValue
	}
	return c.do(ctx, http.MethodPost, "v1/tasks/"+url.PathEscape(taskID)+"/activity", body, nil)
}

// BoardSession wires a drag controller to the remote API: fetch the current
// tasks, run gestures locally, commit through the client on drop.
func (c *Client) BoardSession(ctx context.Context, log *logrus.Logger) (*board.Controller, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return board.NewController(c, tasks, log), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
