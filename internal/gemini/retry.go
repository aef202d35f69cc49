package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RetryConfig configures the retry behavior for API calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryable reports whether err is transient and worth another
// attempt: rate limiting, server-side errors, or transport failures.
// Client errors (4xx other than 429) and malformed responses are not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	return errors.Is(err, ErrTransport)
}

// postWithRetry executes post with exponential backoff. Each attempt
// waits on the shared rate limiter first, so retries cannot amplify
// load on a struggling upstream.
func (c *Client) postWithRetry(ctx context.Context, url string, payload any) ([]byte, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: rate limit wait: %v", ErrTransport, err)
			}
		}

		body, err := c.post(ctx, url, payload)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("request succeeded after retry",
					"attempts", attempt+1,
					"elapsed", time.Since(start))
			}
			return body, nil
		}

		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying after transient error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}

		delay *= 2
		if delay > c.retry.MaxInterval {
			delay = c.retry.MaxInterval
		}
	}

	return nil, lastErr
}
