package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/remedyops/remedy/internal/models"
)

// Provider answers "analyze and suggest a fix" requests. The caller owns
// the rate-limit and backoff discipline.
type Provider interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// RateLimitError marks a provider failure caused by throttling. Callers
// retry these with backoff; any other failure is surfaced as-is.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited (status %d)", e.StatusCode)
}

// HTTPProvider is a minimal REST client for the AI analysis provider.
type HTTPProvider struct {
	baseURL string
	token   string
	model   string
	hc      *http.Client
}

// NewHTTPProvider creates a new provider client.
func NewHTTPProvider(baseURL, token, model string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		token:   token,
		model:   model,
		hc: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Analyze submits the error context and returns the provider's root
// cause and suggested patch.
func (p *HTTPProvider) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	body := struct {
		Model string `json:"model,omitempty"`
		models.AnalysisRequest
	}{
		Model:           p.model,
		AnalysisRequest: req,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/analyze", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, &RateLimitError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}
	return &result, nil
}
