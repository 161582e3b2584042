package watch

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/redact"
)

// Config holds the watcher settings.
type Config struct {
	// Rules resolves each target's rule set reference.
	Rules redact.Loader

	// Concurrency bounds the number of fetches in flight. 1 fetches
	// targets one after another.
	Concurrency int

	// Limiter paces fetch starts across all workers. Nil means unlimited.
	Limiter *rate.Limiter

	// Now supplies the run timestamp.
	Now func() time.Time

	// FetchOptions is passed to every Fetch call.
	FetchOptions fetcher.Options
}

// DefaultConfig returns the sequential, unthrottled configuration.
func DefaultConfig() Config {
	return Config{
		Rules:       redact.NoRules{},
		Concurrency: 1,
		Now:         time.Now,
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithRuleLoader sets where rule set references are resolved.
func WithRuleLoader(l redact.Loader) Option {
	return func(c *Config) {
		if l != nil {
			c.Rules = l
		}
	}
}

// WithConcurrency sets the maximum number of parallel fetches.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.Concurrency = n
	}
}

// WithRateLimit limits fetch starts to perSecond with the given burst.
// A non-positive perSecond removes the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Config) {
		if perSecond <= 0 {
			c.Limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithClock overrides the source of the run timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithFetchOptions sets the options passed to the fetcher.
func WithFetchOptions(opts fetcher.Options) Option {
	return func(c *Config) {
		c.FetchOptions = opts
	}
}
