// Package scm provides minimal clients for the source-control host and
// the automated code-review service.
package scm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CheckState summarizes the combined check status of a change request.
type CheckState string

const (
	CheckStatePending CheckState = "pending"
	CheckStateSuccess CheckState = "success"
	CheckStateFailure CheckState = "failure"
)

// ChangeRequest identifies an opened change.
type ChangeRequest struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
}

// Client is a minimal source-control host API client.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	hc      *http.Client
}

// NewClient creates a new source-control host client for one repository.
func NewClient(baseURL, token, owner, repo string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		owner:   owner,
		repo:    repo,
		hc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateBranch creates a new branch pointing at the head of base.
func (c *Client) CreateBranch(ctx context.Context, base, branch string) error {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", c.owner, c.repo, url.PathEscape(base))
	if err := c.do(ctx, "GET", path, nil, &ref, http.StatusOK); err != nil {
		return fmt.Errorf("resolving base branch %s: %w", base, err)
	}

	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": ref.Object.SHA,
	}
	path = fmt.Sprintf("/repos/%s/%s/git/refs", c.owner, c.repo)
	if err := c.do(ctx, "POST", path, body, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	return nil
}

// GetFileContent fetches a file's decoded content at a ref.
func (c *Client) GetFileContent(ctx context.Context, filePath, ref string) (string, error) {
	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", c.owner, c.repo, filePath, url.QueryEscape(ref))
	if err := c.do(ctx, "GET", path, nil, &file, http.StatusOK); err != nil {
		return "", fmt.Errorf("fetching %s: %w", filePath, err)
	}

	if file.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(file.Content)
		if err != nil {
			return "", fmt.Errorf("decoding %s: %w", filePath, err)
		}
		return string(decoded), nil
	}
	return file.Content, nil
}

// UpdateFile creates or updates a file on a branch.
func (c *Client) UpdateFile(ctx context.Context, filePath, content, message, branch string) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}

	// An existing file needs its blob SHA for the update.
	if sha, err := c.fileSHA(ctx, filePath, branch); err == nil && sha != "" {
		body["sha"] = sha
	}

	path := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, filePath)
	if err := c.do(ctx, "PUT", path, body, nil, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("writing %s on %s: %w", filePath, branch, err)
	}
	return nil
}

// DeleteFile removes a file on a branch.
func (c *Client) DeleteFile(ctx context.Context, filePath, message, branch string) error {
	sha, err := c.fileSHA(ctx, filePath, branch)
	if err != nil {
		return fmt.Errorf("resolving %s for delete: %w", filePath, err)
	}

	body := map[string]string{
		"message": message,
		"sha":     sha,
		"branch":  branch,
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, filePath)
	if err := c.do(ctx, "DELETE", path, body, nil, http.StatusOK); err != nil {
		return fmt.Errorf("deleting %s on %s: %w", filePath, branch, err)
	}
	return nil
}

// CreateChangeRequest opens a pull request and returns its number and URL.
func (c *Client) CreateChangeRequest(ctx context.Context, title, body, base, head string) (*ChangeRequest, error) {
	payload := map[string]string{
		"title": title,
		"body":  body,
		"base":  base,
		"head":  head,
	}

	var cr ChangeRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", c.owner, c.repo)
	if err := c.do(ctx, "POST", path, payload, &cr, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("opening change request: %w", err)
	}
	return &cr, nil
}

// GetChangeStatus returns the combined check state of a change request's
// head commit.
func (c *Client) GetChangeStatus(ctx context.Context, number int) (CheckState, error) {
	var pr struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	if err := c.do(ctx, "GET", path, nil, &pr, http.StatusOK); err != nil {
		return "", fmt.Errorf("fetching change %d: %w", number, err)
	}

	var status struct {
		State string `json:"state"` // "success", "failure", "pending"
	}
	path = fmt.Sprintf("/repos/%s/%s/commits/%s/status", c.owner, c.repo, pr.Head.SHA)
	if err := c.do(ctx, "GET", path, nil, &status, http.StatusOK); err != nil {
		return "", fmt.Errorf("fetching status of change %d: %w", number, err)
	}

	switch status.State {
	case "success":
		return CheckStateSuccess, nil
	case "failure", "error":
		return CheckStateFailure, nil
	default:
		return CheckStatePending, nil
	}
}

// MergeChange merges a change request.
func (c *Client) MergeChange(ctx context.Context, number int) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", c.owner, c.repo, number)
	body := map[string]string{"merge_method": "squash"}
	if err := c.do(ctx, "PUT", path, body, nil, http.StatusOK); err != nil {
		return fmt.Errorf("merging change %d: %w", number, err)
	}
	return nil
}

// fileSHA returns the blob SHA of a file, or "" when the file does not exist.
func (c *Client) fileSHA(ctx context.Context, filePath, ref string) (string, error) {
	var file struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", c.owner, c.repo, filePath, url.QueryEscape(ref))
	if err := c.do(ctx, "GET", path, nil, &file, http.StatusOK); err != nil {
		return "", err
	}
	return file.SHA, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, okStatuses ...int) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
