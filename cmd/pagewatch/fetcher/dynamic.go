package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
)

// ErrNoBrowser is returned when no Chrome binary can be found.
var ErrNoBrowser = errors.New("no Chrome or Chromium binary found")

// DynamicFetcher renders pages in headless Chrome, for pages whose content
// is built by JavaScript. One browser process is shared; every Fetch opens
// its own tab, so Fetch is safe for concurrent use.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamicFetcher starts a browser allocator. The browser itself is
// launched lazily on the first Fetch.
func NewDynamicFetcher(cfg Config) (*DynamicFetcher, error) {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ChromePath == "" {
		cfg.ChromePath = FindChromePath()
	}
	if cfg.ChromePath == "" {
		return nil, ErrNoBrowser
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.ExecPath(cfg.ChromePath),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "chrome", cfg.ChromePath, "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch navigates to targetURL and returns the rendered document.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts fetcher.Options) (fetcher.Content, error) {
	result := fetcher.Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancelBrowser)
	defer stop()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	// The first document response is the page itself.
	var (
		statusMu    sync.Mutex
		status      int64
		contentType string
	)
	chromedp.ListenTarget(browserCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
			return
		}
		statusMu.Lock()
		defer statusMu.Unlock()
		if status == 0 {
			status = resp.Response.Status
			contentType = resp.Response.MimeType
		}
	})

	var html, title string
	actions := []chromedp.Action{network.Enable()}

	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	waitFor := opts.WaitSelector
	if waitFor == "" {
		// WaitVisible on body can poll forever on some pages.
		waitFor = "body"
	}
	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(waitFor),
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	logger.Debug("chromedp executing actions",
		"url", targetURL,
		"action_count", len(actions),
		"timeout", timeout,
		"wait_selector", waitFor)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return result, fetcher.NewFetchError(targetURL, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
			if opts.DetectChallenge {
				return result, fetcher.NewFetchError(targetURL, fmt.Errorf("%w: %v", fetcher.ErrChallengeTimeout, err))
			}
			return result, fetcher.NewFetchError(targetURL, fmt.Errorf("timed out after %s: %w", timeout, context.DeadlineExceeded))
		}
		return result, fetcher.NewFetchError(targetURL, fmt.Errorf("browser automation failed: %w", err))
	}

	statusMu.Lock()
	result.StatusCode = int(status)
	result.ContentType = contentType
	statusMu.Unlock()
	result.Body = []byte(html)
	result.Title = strings.TrimSpace(title)

	if result.StatusCode >= 400 {
		return result, fetcher.NewFetchError(targetURL, fetcher.StatusError(result.StatusCode))
	}
	if opts.MaxBodySize > 0 && len(result.Body) > opts.MaxBodySize {
		return result, fetcher.NewFetchError(targetURL, fetcher.BodyTooLargeError(opts.MaxBodySize))
	}

	if opts.DetectChallenge {
		if kind := fetcher.DetectChallenge(result.Title, html); kind != "" {
			logger.Warn("challenge page detected", "url", targetURL, "type", kind)
			return result, fetcher.NewFetchError(targetURL, fmt.Errorf("%w: %s", fetcher.ErrAntiBot, kind))
		}
	}

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"status", result.StatusCode,
		"title", result.Title,
		"body_size", len(result.Body))

	return result, nil
}

// Close shuts the browser down.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}
