// Package workflow submits remediation requests to the workflow
// orchestration engine, with an in-process fallback when the engine is
// unreachable.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ExecutionState is the engine's state vocabulary for one execution.
type ExecutionState string

const (
	ExecutionCreated ExecutionState = "CREATED"
	ExecutionRunning ExecutionState = "RUNNING"
	ExecutionSuccess ExecutionState = "SUCCESS"
	ExecutionFailed  ExecutionState = "FAILED"
	ExecutionKilled  ExecutionState = "KILLED"
)

// IsTerminal reports whether the execution has finished.
func (s ExecutionState) IsTerminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed || s == ExecutionKilled
}

// Engine is the narrow contract this package needs from the
// orchestration engine.
type Engine interface {
	// Available reports whether the engine is reachable and healthy.
	Available(ctx context.Context) bool
	// TriggerExecution starts the named flow and returns its execution ID.
	TriggerExecution(ctx context.Context, flowID string, inputs map[string]any) (string, error)
	// GetExecution returns the current state of an execution.
	GetExecution(ctx context.Context, executionID string) (ExecutionState, error)
}

// Client is a minimal workflow engine API client.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewClient creates a new engine client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Available checks the engine's health endpoint.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// TriggerExecution starts the named flow with the given inputs.
func (c *Client) TriggerExecution(ctx context.Context, flowID string, inputs map[string]any) (string, error) {
	data, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return "", err
	}

	target := fmt.Sprintf("%s/api/v1/workflows/%s/run", c.baseURL, url.PathEscape(flowID))
	req, err := http.NewRequestWithContext(ctx, "POST", target, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("triggering execution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("triggering execution: status %d", resp.StatusCode)
	}

	var result struct {
		ExecutionID string `json:"executionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ExecutionID, nil
}

// GetExecution fetches the state of an execution.
func (c *Client) GetExecution(ctx context.Context, executionID string) (ExecutionState, error) {
	target := fmt.Sprintf("%s/api/v1/executions/%s", c.baseURL, url.PathEscape(executionID))
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching execution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching execution: status %d", resp.StatusCode)
	}

	var result struct {
		Status ExecutionState `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Status, nil
}
