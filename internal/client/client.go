// Package client is a typed HTTP client for the anchor API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/planner"
)

const defaultTimeout = 30 * time.Second

// ErrUnexpectedStatus is returned for responses the client does not understand.
var ErrUnexpectedStatus = errors.New("unexpected status")

// APIError is an error answered by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout on a copy of the current
// http.Client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// Client talks to one anchor server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Player returns the player record and level progress.
func (c *Client) Player(ctx context.Context) (service.PlayerStats, error) {
	var out service.PlayerStats
	return out, c.do(ctx, http.MethodGet, "/player", nil, &out)
}

// Stats returns the service statistics.
func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	var out service.Stats
	return out, c.do(ctx, http.MethodGet, "/stats", nil, &out)
}

// Tasks lists tasks.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	return out, c.do(ctx, http.MethodGet, "/tasks", nil, &out)
}

// CreateTask adds a task.
func (c *Client) CreateTask(ctx context.Context, title string) (model.Task, error) {
	var out model.Task
	return out, c.do(ctx, http.MethodPost, "/tasks", map[string]string{"title": title}, &out)
}

// CompleteTask completes a task.
func (c *Client) CompleteTask(ctx context.Context, id string) (service.TaskOutcome, error) {
	var out service.TaskOutcome
	return out, c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/complete", nil, &out)
}

// UncompleteTask reopens a task.
func (c *Client) UncompleteTask(ctx context.Context, id string) (service.TaskOutcome, error) {
	var out service.TaskOutcome
	return out, c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/uncomplete", nil, &out)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// Habits lists habits.
func (c *Client) Habits(ctx context.Context) ([]model.Habit, error) {
	var out []model.Habit
	return out, c.do(ctx, http.MethodGet, "/habits", nil, &out)
}

// ToggleHabit flips today's completion of a habit.
func (c *Client) ToggleHabit(ctx context.Context, id string) (service.HabitOutcome, error) {
	var out service.HabitOutcome
	return out, c.do(ctx, http.MethodPost, "/habits/"+url.PathEscape(id)+"/toggle", nil, &out)
}

// SweepHabits runs the missed-habit penalty sweep.
func (c *Client) SweepHabits(ctx context.Context) (service.SweepOutcome, error) {
	var out service.SweepOutcome
	return out, c.do(ctx, http.MethodPost, "/habits/sweep", nil, &out)
}

// Goals lists the North Star goals.
func (c *Client) Goals(ctx context.Context) ([]model.Goal, error) {
	var out []model.Goal
	return out, c.do(ctx, http.MethodGet, "/goals", nil, &out)
}

// SetGoal edits a goal slot.
func (c *Client) SetGoal(ctx context.Context, id int, text string) (model.Goal, error) {
	var out model.Goal
	return out, c.do(ctx, http.MethodPut, "/goals/"+strconv.Itoa(id), map[string]string{"text": text}, &out)
}

// AddQuickCapture logs a quick capture.
func (c *Client) AddQuickCapture(ctx context.Context, text string) (model.Entry, error) {
	var out model.Entry
	return out, c.do(ctx, http.MethodPost, "/captures", map[string]string{"text": text}, &out)
}

// AddBrainDump logs a brain-dump entry.
func (c *Client) AddBrainDump(ctx context.Context, text string) (model.Entry, error) {
	var out model.Entry
	return out, c.do(ctx, http.MethodPost, "/braindump", map[string]string{"text": text}, &out)
}

// DailyFocus returns the daily focus statement.
func (c *Client) DailyFocus(ctx context.Context) (string, error) {
	var out struct {
		Focus string `json:"focus"`
	}
	err := c.do(ctx, http.MethodGet, "/focus", nil, &out)
	return out.Focus, err
}

// SetDailyFocus stores the daily focus statement.
func (c *Client) SetDailyFocus(ctx context.Context, focus string) error {
	return c.do(ctx, http.MethodPut, "/focus", map[string]string{"focus": focus}, nil)
}

// MorningBrief returns the planning brief.
func (c *Client) MorningBrief(ctx context.Context) (planner.Brief, error) {
	var out planner.Brief
	return out, c.do(ctx, http.MethodGet, "/planner/brief", nil, &out)
}

// Shop lists the reward catalog.
func (c *Client) Shop(ctx context.Context) ([]model.Reward, error) {
	var out []model.Reward
	return out, c.do(ctx, http.MethodGet, "/shop", nil, &out)
}

// Purchase buys a reward.
func (c *Client) Purchase(ctx context.Context, rewardID string) (service.PurchaseOutcome, error) {
	var out service.PurchaseOutcome
	return out, c.do(ctx, http.MethodPost, "/shop/purchase", map[string]string{"reward_id": rewardID}, &out)
}

// VoiceSubmission is the answer to a voice upload.
type VoiceSubmission struct {
	Job       model.JobResult `json:"job"`
	Duplicate bool            `json:"duplicate"`
}

// SubmitVoice uploads audio for transcription. requestID makes retries safe;
// spiciness 0 selects the server default.
func (c *Client) SubmitVoice(ctx context.Context, requestID string, audio []byte, spiciness int) (VoiceSubmission, error) {
	path := "/capture/voice"
	if spiciness > 0 {
		path += "?spiciness=" + strconv.Itoa(spiciness)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(audio))
	if err != nil {
		return VoiceSubmission{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if requestID != "" {
		req.Header.Set("Idempotency-Key", requestID)
	}
	var out VoiceSubmission
	return out, c.send(req, &out)
}

// Job returns a voice job.
func (c *Client) Job(ctx context.Context, id string) (model.JobResult, error) {
	var out model.JobResult
	return out, c.do(ctx, http.MethodGet, "/capture/jobs/"+url.PathEscape(id), nil, &out)
}

// WaitJob polls a voice job every interval until it leaves the pending state
// or ctx ends.
func (c *Client) WaitJob(ctx context.Context, id string, interval time.Duration) (model.JobResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return model.JobResult{}, err
		}
		if job.Status != model.JobPending {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
