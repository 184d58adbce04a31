package tts

import (
	"errors"
	"fmt"
	"time"
)

// Common synthesis errors
var (
	// ErrEmptyText indicates synthesis was requested for an empty string
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrRateLimited indicates the endpoint answered 429
	ErrRateLimited = errors.New("rate limited by synthesis endpoint")

	// ErrNoEndpoint indicates no synthesis endpoint URL is configured
	ErrNoEndpoint = errors.New("no synthesis endpoint configured")

	// ErrNoAPIKey indicates no synthesis API key is configured
	ErrNoAPIKey = errors.New("no synthesis API key configured")
)

// APIError is a non-200, non-429 response from the synthesis endpoint.
// It is never retried.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("synthesis endpoint returned status %d", e.Status)
	}
	return fmt.Sprintf("synthesis endpoint returned status %d: %s", e.Status, e.Body)
}

// RateLimitParseError is a 429 whose body did not yield a wait
// duration. The engine never guesses a wait, so the item fails.
type RateLimitParseError struct {
	Message string
}

// Error implements the error interface
func (e *RateLimitParseError) Error() string {
	return fmt.Sprintf("rate limited without a parseable wait hint: %q", e.Message)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match
func (e *RateLimitParseError) Unwrap() error {
	return ErrRateLimited
}

// RetryExhaustedError reports that every allowed attempt was answered
// with a rate limit.
type RetryExhaustedError struct {
	// Attempts is the number of requests actually made
	Attempts int

	// LastWait is the wait hint from the final 429
	LastWait time.Duration
}

// Error implements the error interface
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("rate limited on all %d attempts (last wait hint %s)", e.Attempts, e.LastWait)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match
func (e *RetryExhaustedError) Unwrap() error {
	return ErrRateLimited
}

// retryableLimit is the internal signal for a 429 carrying a usable
// wait hint. It never escapes the retry loop.
type retryableLimit struct {
	wait time.Duration
}

func (e *retryableLimit) Error() string {
	return fmt.Sprintf("rate limited, endpoint suggests retrying in %s", e.wait)
}

func (e *retryableLimit) Unwrap() error {
	return ErrRateLimited
}
