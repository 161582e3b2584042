// Package fetcher provides the headless-browser fetcher used by the CLI's
// dynamic fetch mode. It drives Chrome or Chromium through chromedp.
package fetcher

import (
	"time"

	"github.com/jmylchreest/pagewatch/pkg/fetcher"
)

// Config holds configuration for the dynamic fetcher.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	ChromePath string // Browser binary; found automatically when empty
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: fetcher.DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}
