package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/app"
)

// ErrNotRinging is returned by Client.Snooze when nothing is ringing.
var ErrNotRinging = errors.New("no alarm is ringing")

// Client talks to a running daemon's control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the daemon listening on addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("control API returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Type = er.Error
			apiErr.Message = er.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/scheduler/status", nil, &st)
	return st, err
}

// SetRunning starts or stops the foreground scheduler.
func (c *Client) SetRunning(ctx context.Context, run bool) (LifecycleResponse, error) {
	path := "/scheduler/stop"
	if run {
		path = "/scheduler/start"
	}
	var resp LifecycleResponse
	err := c.do(ctx, http.MethodPost, path, nil, &resp)
	return resp, err
}

func (c *Client) Permission(ctx context.Context) (PermissionResponse, error) {
	var resp PermissionResponse
	err := c.do(ctx, http.MethodGet, "/permissions/exact-alarm", nil, &resp)
	return resp, err
}

// Current returns the ringing alarm. Platforms without exact alarms report
// nothing ringing.
func (c *Client) Current(ctx context.Context) (CurrentResponse, error) {
	var resp CurrentResponse
	err := c.do(ctx, http.MethodGet, "/alarm/current", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return CurrentResponse{}, nil
	}
	return resp, err
}

func (c *Client) StopAlarm(ctx context.Context) (bool, error) {
	var resp struct {
		Stopped bool `json:"stopped"`
	}
	err := c.do(ctx, http.MethodPost, "/alarm/stop", nil, &resp)
	return resp.Stopped, err
}

func (c *Client) Snooze(ctx context.Context) (alarm.Alarm, error) {
	var resp struct {
		Snoozed alarm.Alarm `json:"snoozed"`
	}
	err := c.do(ctx, http.MethodPost, "/alarm/snooze", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return alarm.Alarm{}, ErrNotRinging
	}
	return resp.Snoozed, err
}

func (c *Client) Resume(ctx context.Context) (app.ResumeSummary, error) {
	var sum app.ResumeSummary
	err := c.do(ctx, http.MethodPost, "/resume", nil, &sum)
	return sum, err
}

func (c *Client) Next(ctx context.Context, limit int) ([]app.Occurrence, error) {
	var resp struct {
		Occurrences []app.Occurrence `json:"occurrences"`
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	err := c.do(ctx, http.MethodGet, "/alerts/next", q, &resp)
	return resp.Occurrences, err
}
