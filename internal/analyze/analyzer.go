package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/pkg/config"
)

// Analyzer obtains a root-cause analysis and suggested patch for a
// deployment error, degrading to a template fix when the provider's
// retry budget runs out.
type Analyzer struct {
	provider    Provider
	limiter     *RateLimiter
	fetcher     FileFetcher
	backoffBase time.Duration
	maxRetries  int
	logger      *slog.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(provider Provider, fetcher FileFetcher, cfg *config.AnalyzerConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		provider:    provider,
		limiter:     NewRateLimiter(cfg.RateLimit, time.Minute, cfg.MinSpacing),
		fetcher:     fetcher,
		backoffBase: cfg.BackoffBase,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Analyze produces the fix strategy and analysis for a deployment error.
// The pattern pass always succeeds; the AI pass is rate limited and
// retried, and its failure yields a degraded template analysis rather
// than an error.
func (a *Analyzer) Analyze(ctx context.Context, de *models.DeploymentError, meta models.Metadata) (models.FixStrategy, *models.AnalysisResult) {
	strategy := SelectStrategy(ctx, de.ErrorText, meta.Branch, a.fetcher)

	a.logger.Info("fix strategy selected",
		"deployment_id", de.DeploymentID,
		"error_id", de.ID,
		"fix_type", strategy.Type,
	)

	req := models.AnalysisRequest{
		ErrorText: de.ErrorText,
		LogLines:  logLines(de.LogEntries),
		Metadata:  meta,
	}

	result, err := a.callWithRetry(ctx, req)
	if err != nil {
		a.logger.Warn("analysis degraded to template fix",
			"deployment_id", de.DeploymentID,
			"error_id", de.ID,
			"error", err,
		)
		result = templateResult(de, strategy)
	}

	// Syntax fixes carry no generated content of their own: the change
	// body comes from the provider's suggested patch.
	for i := range strategy.Changes {
		if strategy.Changes[i].Content == "" && strategy.Changes[i].Action != models.FileActionDelete {
			strategy.Changes[i].Content = result.SuggestedPatch
		}
	}

	return strategy, result
}

// callWithRetry performs the provider call under the rate limiter,
// retrying rate-limited failures with exponential backoff plus jitter.
func (a *Analyzer) callWithRetry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(a.backoffBase, attempt)
			a.logger.Debug("retrying provider call",
				"attempt", attempt,
				"delay", delay,
			)
			if err := a.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := a.provider.Analyze(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("provider retry budget exhausted: %w", lastErr)
}

// BackoffDelay computes the delay before the given retry attempt:
// base doubled per attempt, plus up to 25% jitter.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// templateResult is the degraded analysis used when the provider is
// unavailable past the retry budget.
func templateResult(de *models.DeploymentError, strategy models.FixStrategy) *models.AnalysisResult {
	return &models.AnalysisResult{
		RootCause: fmt.Sprintf(
			"Automated analysis unavailable. The build failed with: %s. A %s fix was prepared from the error pattern.",
			de.ErrorText, strategy.Type,
		),
		SuggestedPatch: fmt.Sprintf("// %s\n// Review the change produced by the %s fix template.\n", strategy.Description, strategy.Type),
		Degraded:       true,
	}
}

func logLines(entries []models.LogEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Message)
	}
	return lines
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
