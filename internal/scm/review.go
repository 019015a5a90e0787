package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ReviewClient talks to the automated code-review service. All of its
// calls are best effort: an uninstalled or unreachable service skips the
// review step without failing the pipeline.
type ReviewClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewReviewClient creates a new review service client.
func NewReviewClient(baseURL, token string) *ReviewClient {
	return &ReviewClient{
		baseURL: baseURL,
		token:   token,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsInstalled reports whether the review service is configured for the
// repository.
func (c *ReviewClient) IsInstalled(ctx context.Context, owner, repo string) (bool, error) {
	url := fmt.Sprintf("%s/v1/repositories/%s/%s", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var info struct {
			Installed bool `json:"installed"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return false, err
		}
		return info.Installed, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// RequestReview asks the service to analyze a change request.
func (c *ReviewClient) RequestReview(ctx context.Context, owner, repo string, number int) error {
	url := fmt.Sprintf("%s/v1/repositories/%s/%s/reviews/%d", c.baseURL, owner, repo, number)
	req, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
