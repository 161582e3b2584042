package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/pagewatch/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int // 0 means no limit
}

// Defaults used when neither StaticConfig nor Options set a value.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; pagewatch/1.0; +https://github.com/jmylchreest/pagewatch)"
)

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// StaticFetcher retrieves pages over plain HTTP using Colly.
// It implements the Fetcher interface and is safe for concurrent use: every
// call builds its own collector.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	def := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves the body of targetURL as the server sent it, without
// charset conversion. Error statuses (>= 400) fail with ErrStatus, bodies
// over the size limit with ErrBodyTooLarge, and with DetectChallenge set,
// challenge pages fail with ErrAntiBot. All failures are *FetchError.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	userAgent := coalesce(opts.UserAgent, f.config.UserAgent)
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	maxBody := opts.MaxBodySize
	if maxBody == 0 {
		maxBody = f.config.MaxBodySize
	}

	// One byte past the limit tells an oversized body from one that fits.
	readLimit := 0
	if maxBody > 0 {
		readLimit = maxBody + 1
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(readLimit),
		colly.ParseHTTPErrorResponse(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(timeout)
	wire := newRawCapture(nil)
	c.WithTransport(wire)

	logger.Debug("static fetch starting",
		"url", targetURL,
		"timeout", timeout,
		"max_body", humanize.IBytes(uint64(maxBody)))

	if len(opts.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error
	var decoded []byte

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		decoded = r.Body
		result.Body = r.Body
		if raw, ok := wire.body(); ok {
			result.Body = raw
		}
		logger.Debug("static fetch response received",
			"url", targetURL,
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", humanize.Bytes(uint64(len(r.Body))))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr == nil && ctx.Err() != nil {
		fetchErr = ctx.Err()
	}
	if fetchErr != nil {
		logger.Debug("static fetch failed", "url", targetURL, "error", fetchErr)
		return result, NewFetchError(targetURL, fetchErr)
	}

	if result.StatusCode >= http.StatusBadRequest {
		return result, NewFetchError(targetURL, StatusError(result.StatusCode))
	}
	if maxBody > 0 && len(result.Body) > maxBody {
		logger.Debug("static fetch body over limit", "url", targetURL, "max_body", maxBody)
		return result, NewFetchError(targetURL, BodyTooLargeError(maxBody))
	}

	result.Title = pageTitle(decoded)

	if opts.DetectChallenge {
		if kind := DetectChallenge(result.Title, string(decoded)); kind != "" {
			logger.Warn("challenge page detected", "url", targetURL, "type", kind)
			return result, NewFetchError(targetURL, fmt.Errorf("%w: %s", ErrAntiBot, kind))
		}
	}

	logger.Debug("static fetch complete", "url", targetURL, "title", result.Title)
	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

// pageTitle returns the trimmed <title> text of an HTML body, or "".
func pageTitle(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
