// Package fetcher defines how watched pages are retrieved.
// Implement the Fetcher interface to plug in other transports, such as a
// headless browser or an authenticated client.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves the raw body of a URL. A non-success status or a
	// transport failure is returned as an error.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	MaxBodySize     int    // bytes; larger bodies fail with ErrBodyTooLarge. 0 uses the fetcher setting
	DetectChallenge bool   // treat bot-challenge interstitials as failures
	WaitSelector    string // CSS selector to wait for (dynamic fetchers)
	Headers         map[string]string
}

// Content represents a fetched page.
type Content struct {
	URL         string
	Body        []byte
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Sentinel causes. Check with errors.Is(err, fetcher.ErrStatus).
var (
	// ErrStatus indicates the server answered with an error status.
	ErrStatus = errors.New("unexpected status")
	// ErrBodyTooLarge indicates the body exceeded the configured size limit.
	ErrBodyTooLarge = errors.New("body too large")
	// ErrAntiBot indicates the response was a bot-challenge page.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrChallengeTimeout indicates a timeout while waiting for a challenge to resolve.
	ErrChallengeTimeout = errors.New("challenge timeout")
)

// FetchError is a per-URL retrieval failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for url. An error that already is a *FetchError is
// returned unchanged, and a nil err yields nil.
func NewFetchError(url string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{URL: url, Err: err}
}

// StatusError builds the error for a non-success HTTP status.
func StatusError(code int) error {
	return fmt.Errorf("%w: %d", ErrStatus, code)
}

// BodyTooLargeError returns an ErrBodyTooLarge error naming the limit.
func BodyTooLargeError(limit int) error {
	return fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, limit)
}
