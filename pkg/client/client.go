// Package client provides a Go client for the NeuroProof proofreading API.
//
// It covers the review loop (top edge, decisions, undo), manual edge edits,
// strategy switching, remaining-work estimates (inline or as a background
// task), QA reports and state export.
//
// The client handles HTTP communication, JSON serialization/deserialization, and
// standardized error handling.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// --- Custom Errors ---

// APIError represents an error returned by the API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// --- JSON Response Structs ---

// UndoResult is the outcome of an undo request.
type UndoResult struct {
	Undone bool `json:"undone"`
	editor.Stats
}

type estimateResponse struct {
	Remaining int `json:"remaining"`
}

type violatorsResponse struct {
	Regions []uint64 `json:"regions"`
}

// Task represents a background estimate on the server.
type Task struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Remaining *int   `json:"remaining,omitempty"`
	Error     string `json:"error,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client is the Go client for a neuroproof server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client for the server at baseURL (e.g. http://localhost:9191).
// A non-empty token is sent as a bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
	}
}

// jsonRequest is a helper method to execute all requests to the API.
// It handles JSON serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(ctx context.Context, method, endpoint string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// --- Review Loop ---

// TopEdge returns the next edge to review. A 404 APIError means the active
// strategy is finished.
func (c *Client) TopEdge(ctx context.Context) (session.Candidate, error) {
	var out session.Candidate
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/top-edge", nil, &out)
	return out, err
}

// Merge folds secondary into primary.
func (c *Client) Merge(ctx context.Context, primary, secondary uint64) (editor.Stats, error) {
	return c.decide(ctx, primary, secondary, false)
}

// Reject confirms the boundary between primary and secondary.
func (c *Client) Reject(ctx context.Context, primary, secondary uint64) (editor.Stats, error) {
	return c.decide(ctx, primary, secondary, true)
}

func (c *Client) decide(ctx context.Context, primary, secondary uint64, rejected bool) (editor.Stats, error) {
	payload := map[string]any{"primary": primary, "secondary": secondary, "rejected": rejected}
	var out editor.Stats
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/decisions", payload, &out)
	return out, err
}

// Undo reverts the latest decision or edge edit.
func (c *Client) Undo(ctx context.Context) (UndoResult, error) {
	var out UndoResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/undo", nil, &out)
	return out, err
}

// SetEdgeWeight overwrites the weight of the edge joining node1 and node2.
func (c *Client) SetEdgeWeight(ctx context.Context, node1, node2 uint64, weight float64) error {
	payload := map[string]any{"node1": node1, "node2": node2, "weight": weight}
	return c.jsonRequest(ctx, http.MethodPost, "/v1/edges/weight", payload, nil)
}

// --- Session ---

// Stats returns the session progress.
func (c *Client) Stats(ctx context.Context) (editor.Stats, error) {
	var out editor.Stats
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stats", nil, &out)
	return out, err
}

// SetMode switches the ranking strategy.
func (c *Client) SetMode(ctx context.Context, req session.ModeRequest) (editor.Stats, error) {
	var out editor.Stats
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/mode", req, &out)
	return out, err
}

// Estimate runs the remaining-work simulation and waits for the result.
func (c *Client) Estimate(ctx context.Context) (int, error) {
	var out estimateResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/estimate", nil, &out)
	return out.Remaining, err
}

// StartEstimate starts the simulation as a background task.
func (c *Client) StartEstimate(ctx context.Context) (*Task, error) {
	var out struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := c.jsonRequest(ctx, http.MethodPost, "/v1/estimate?async=true", nil, &out); err != nil {
		return nil, err
	}
	return &Task{ID: out.TaskID, Status: out.Status, client: c}, nil
}

// GetTaskStatus retrieves the status of a background task.
func (c *Client) GetTaskStatus(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	out.client = c
	return &out, nil
}

// QAViolators lists orphan regions with synapses or of at least threshold
// size. A zero threshold uses the server's configured value.
func (c *Client) QAViolators(ctx context.Context, threshold uint64) ([]uint64, error) {
	endpoint := "/v1/qa-violators"
	if threshold > 0 {
		endpoint += "?threshold=" + strconv.FormatUint(threshold, 10)
	}
	var out violatorsResponse
	err := c.jsonRequest(ctx, http.MethodGet, endpoint, nil, &out)
	return out.Regions, err
}

// State fetches the current state document.
func (c *Client) State(ctx context.Context) (*editor.State, error) {
	var out editor.State
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export saves the session on the server and truncates its journal.
func (c *Client) Export(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/state/export", nil, nil)
}

// --- Tasks ---

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updated, err := t.client.GetTaskStatus(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Status = updated.Status
	t.Remaining = updated.Remaining
	t.Error = updated.Error
	return nil
}

// Wait blocks until the task is completed, checking its status at regular
// intervals, and returns the estimate.
func (t *Task) Wait(ctx context.Context, interval time.Duration) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting for task %s: %w", t.ID, ctx.Err())
		case <-ticker.C:
			if err := t.Refresh(ctx); err != nil {
				return 0, err
			}
			switch t.Status {
			case "completed":
				if t.Remaining == nil {
					return 0, fmt.Errorf("task %s completed without a result", t.ID)
				}
				return *t.Remaining, nil
			case "failed":
				return 0, fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return 0, fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}
