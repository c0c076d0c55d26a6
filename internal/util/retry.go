// ABOUTME: Retry utilities for API calls with exponential backoff
// ABOUTME: Shared by the OpenAI client and web search for consistent retry behavior
package util

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift (max 30 for safety)
	if attempt > 30 {
		attempt = 30
	}
	// Exponential: 2^attempt * base
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff <= 0 {
		// Zero or negative base delay means no wait between attempts
		return 0
	}
	// Cap at 30 seconds
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	// Add jitter: -25% to +25% using auto-seeded math/rand/v2. Sub-nanosecond
	// jitter ranges are skipped rather than handed to Int64N.
	half := int64(backoff) / 2
	if half <= 0 {
		return backoff
	}
	jitter := time.Duration(rand.Int64N(half)) - backoff/4
	return backoff + jitter
}

// Do runs fn up to maxRetries+1 times, sleeping with exponential backoff
// between attempts. Returns nil on the first success, otherwise the last
// error wrapped with the total attempt count.
func Do(maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(CalculateBackoff(baseDelay, attempt))
		}
		if err := fn(); err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}
