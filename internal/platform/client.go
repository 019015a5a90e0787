// Package platform provides a minimal client for the deployment
// platform's REST API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a minimal deployment platform API client.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient creates a new platform API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		hc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// DeploymentInfo is the platform's deployment descriptor.
type DeploymentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReadyState  string `json:"readyState"`
	URL         string `json:"url,omitempty"`
	Target      string `json:"target,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
	BuildingAt  int64  `json:"buildingAt,omitempty"`
	ReadyAt     int64  `json:"ready,omitempty"`
	GitBranch   string `json:"gitBranch,omitempty"`
	GitCommit   string `json:"gitCommitSha,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
}

// LogEvent is one build or runtime log event.
type LogEvent struct {
	Type    string `json:"type"` // "stdout", "stderr", "command" etc.
	Created int64  `json:"created"`
	Payload struct {
		Text string `json:"text"`
		Tag  string `json:"tag,omitempty"` // platform-assigned source tag
	} `json:"payload"`
}

// GetStatus fetches the current descriptor for a deployment.
func (c *Client) GetStatus(ctx context.Context, id string) (*DeploymentInfo, error) {
	var info DeploymentInfo
	if err := c.get(ctx, fmt.Sprintf("/v13/deployments/%s", url.PathEscape(id)), &info); err != nil {
		return nil, fmt.Errorf("fetching deployment %s: %w", id, err)
	}
	return &info, nil
}

// GetLogEvents fetches the build log events for a deployment. The
// platform returns the full event list; the registry deduplicates.
func (c *Client) GetLogEvents(ctx context.Context, id string) ([]LogEvent, error) {
	var events []LogEvent
	if err := c.get(ctx, fmt.Sprintf("/v2/deployments/%s/events", url.PathEscape(id)), &events); err != nil {
		return nil, fmt.Errorf("fetching log events for %s: %w", id, err)
	}
	return events, nil
}

// ListDeployments fetches recent deployments for a project.
func (c *Client) ListDeployments(ctx context.Context, project string) ([]DeploymentInfo, error) {
	var result struct {
		Deployments []DeploymentInfo `json:"deployments"`
	}
	path := fmt.Sprintf("/v6/deployments?projectId=%s&limit=20", url.QueryEscape(project))
	if err := c.get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("listing deployments for %s: %w", project, err)
	}
	return result.Deployments, nil
}

// TriggerDeployment requests a new deployment of a project branch.
func (c *Client) TriggerDeployment(ctx context.Context, project, environment, branch string) (*DeploymentInfo, error) {
	body := map[string]any{
		"name":   project,
		"target": environment,
		"gitSource": map[string]string{
			"type": "github",
			"ref":  branch,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v13/deployments", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("triggering deployment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("triggering deployment: status %d", resp.StatusCode)
	}

	var info DeploymentInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
