// Package watch runs one change-detection pass over a watch list.
//
// For every target the watcher fetches the page, normalizes it with the
// built-in cleaners plus the target's redaction rules, fingerprints the
// result and compares it with the previous snapshot. Fetches may run in
// parallel; results are always merged in watch-list order.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/pkg/cleaner"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/fingerprint"
	"github.com/jmylchreest/pagewatch/pkg/snapshot"
	"github.com/jmylchreest/pagewatch/pkg/watchlist"
)

// Status classifies a target after a run.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Outcome is the per-target result of a run.
type Outcome struct {
	Target      watchlist.Target
	Status      Status
	First       bool // no prior entry existed
	Fingerprint string
	LastChanged time.Time
	Title       string
	Size        int // raw body bytes
	Duration    time.Duration
	Err         error
}

// Change is a target whose fingerprint differs from the prior snapshot,
// including targets seen for the first time.
type Change struct {
	URL         string    `json:"url" yaml:"url"`
	LastChanged time.Time `json:"last_changed" yaml:"last_changed"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	First       bool      `json:"first,omitempty" yaml:"first,omitempty"`
}

// Failure is a target that could not be processed this run. Err is a
// *fetcher.FetchError or a *redact.RuleError.
type Failure struct {
	URL string
	Err error
}

// Result is everything a run produced.
type Result struct {
	RunAt    time.Time
	Snapshot *snapshot.Snapshot
	Changes  []Change
	Failures []Failure
	Outcomes []Outcome
}

// HasChanges reports whether any target changed.
func (r *Result) HasChanges() bool {
	return r != nil && len(r.Changes) > 0
}

// Watcher runs change-detection passes.
type Watcher struct {
	fetcher fetcher.Fetcher
	config  Config
}

// New creates a watcher that fetches with f.
func New(f fetcher.Fetcher, opts ...Option) *Watcher {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Watcher{fetcher: f, config: cfg}
}

// observation is what a worker learned about one target.
type observation struct {
	fingerprint string
	title       string
	size        int
	duration    time.Duration
	err         error
}

// Run processes targets against prior and returns the new snapshot and the
// change report. prior is not modified. Per-target failures are recorded in
// the result; Run itself only fails when ctx is cancelled, in which case no
// result is returned and the caller must not persist anything.
func (w *Watcher) Run(ctx context.Context, targets []watchlist.Target, prior *snapshot.Snapshot) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runAt := w.config.Now()
	logger.Debug("watch run starting",
		"targets", len(targets),
		"prior_entries", prior.Len(),
		"concurrency", w.config.Concurrency,
		"fetcher", w.fetcher.Type())

	observations := w.observeAll(ctx, targets)
	if err := ctx.Err(); err != nil {
		logger.Debug("watch run cancelled", "error", err)
		return nil, err
	}

	result := &Result{
		RunAt:    runAt,
		Snapshot: snapshot.New(),
		Outcomes: make([]Outcome, 0, len(targets)),
	}

	for i, target := range targets {
		obs := observations[i]
		outcome := Outcome{
			Target:   target,
			Title:    obs.title,
			Size:     obs.size,
			Duration: obs.duration,
		}

		if obs.err != nil {
			logger.Debug("target failed", "url", target.URL, "error", obs.err)
			outcome.Status = StatusFailed
			outcome.Err = obs.err
			result.Failures = append(result.Failures, Failure{URL: target.URL, Err: obs.err})
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		outcome.Fingerprint = obs.fingerprint
		prev, seen := prior.Get(target.URL)
		if seen && prev.Fingerprint == obs.fingerprint {
			outcome.Status = StatusUnchanged
			outcome.LastChanged = prev.LastChanged
		} else {
			outcome.Status = StatusChanged
			outcome.First = !seen
			outcome.LastChanged = runAt
			result.Changes = append(result.Changes, Change{
				URL:         target.URL,
				LastChanged: runAt,
				Title:       obs.title,
				First:       !seen,
			})
		}

		logger.Debug("target processed",
			"url", target.URL,
			"status", outcome.Status,
			"fingerprint", outcome.Fingerprint)

		result.Snapshot.Put(snapshot.Entry{
			URL:         target.URL,
			Fingerprint: outcome.Fingerprint,
			LastChanged: outcome.LastChanged,
		})
		result.Outcomes = append(result.Outcomes, outcome)
	}

	logger.Debug("watch run complete",
		"changed", len(result.Changes),
		"failed", len(result.Failures),
		"entries", result.Snapshot.Len())

	return result, nil
}

// observeAll fetches and fingerprints every target, at most
// config.Concurrency at a time. Slots are taken in watch-list order, so a
// concurrency of 1 fetches strictly in sequence. observations[i] belongs to
// targets[i].
func (w *Watcher) observeAll(ctx context.Context, targets []watchlist.Target) []observation {
	observations := make([]observation, len(targets))

	concurrency := w.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, t watchlist.Target) {
			defer wg.Done()
			defer func() { <-sem }()

			observations[i] = w.observe(ctx, t)
		}(i, target)
	}

	wg.Wait()
	return observations
}

// observe runs fetch, normalize and fingerprint for one target.
func (w *Watcher) observe(ctx context.Context, t watchlist.Target) observation {
	if err := ctx.Err(); err != nil {
		return observation{err: fetcher.NewFetchError(t.URL, err)}
	}
	if w.config.Limiter != nil {
		if err := w.config.Limiter.Wait(ctx); err != nil {
			return observation{err: fetcher.NewFetchError(t.URL, err)}
		}
	}

	start := time.Now()
	content, err := w.fetcher.Fetch(ctx, t.URL, w.config.FetchOptions)
	obs := observation{
		title:    content.Title,
		size:     len(content.Body),
		duration: time.Since(start),
	}
	if err != nil {
		obs.err = fetcher.NewFetchError(t.URL, err)
		return obs
	}

	var extra []cleaner.Cleaner
	if t.HasRuleSet() {
		rules, err := w.config.Rules.Load(t.RuleSet)
		if err != nil {
			obs.err = err
			return obs
		}
		extra = rules.Cleaners()
	}

	canonical := cleaner.Normalize(content.Body, extra...)
	obs.fingerprint = fingerprint.Sum(canonical)
	return obs
}
