package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrProvider indicates a non-retryable backend failure: bad credentials,
// a rejected request, or an unsupported model. Jobs terminate on it.
type ErrProvider struct {
	Err error
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ErrProvider) Unwrap() error { return e.Err }

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrTransient is returned when the retry ceiling is exhausted without a
// successful completion. It wraps the last retryable error seen, so the
// caller can degrade (partial result, skipped iteration) instead of
// retrying indefinitely.
type ErrTransient struct {
	Attempts int
	Err      error
}

func (e *ErrTransient) Error() string {
	return fmt.Sprintf("transient failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrTransient) Unwrap() error { return e.Err }

// IsFatal reports whether err should terminate the whole job rather than
// degrade to a partial result.
func IsFatal(err error) bool {
	var provider *ErrProvider
	return errors.As(err, &provider)
}
