// Package metrics records per-run Prometheus metrics. A run is a short-lived
// process, so metrics are written to a node_exporter textfile instead of
// being served.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmylchreest/pagewatch/internal/version"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/redact"
	"github.com/jmylchreest/pagewatch/pkg/watch"
)

// Failure reasons used as the "reason" label.
const (
	ReasonStatus    = "status"
	ReasonTooLarge  = "body_too_large"
	ReasonAntiBot   = "anti_bot"
	ReasonChallenge = "challenge_timeout"
	ReasonTimeout   = "timeout"
	ReasonRules     = "rules"
	ReasonTransport = "transport"
)

type RunMetrics struct {
	reg              *prometheus.Registry
	buildInfo        *prometheus.GaugeVec
	targets          *prometheus.GaugeVec
	failuresTotal    *prometheus.CounterVec
	fetchDur         prometheus.Histogram
	respBytes        prometheus.Histogram
	snapshotEntries  prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	runDuration      prometheus.Gauge
}

// New returns a registry with the run metrics registered and build_info set.
func New() *RunMetrics {
	reg := prometheus.NewRegistry()

	m := &RunMetrics{
		reg: reg,
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pagewatch_build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"version", "commit", "build_date", "vcs_dirty", "go_version"}),
		targets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pagewatch_targets",
			Help: "Targets processed in the last run by outcome status",
		}, []string{"status"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagewatch_failures_total",
			Help: "Failed targets in the last run by reason",
		}, []string{"reason"}),
		fetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagewatch_fetch_duration_seconds",
			Help:    "Time spent fetching each target",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		respBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagewatch_response_size_bytes",
			Help:    "Raw body size of each fetched target",
			Buckets: []float64{1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216},
		}),
		snapshotEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagewatch_snapshot_entries",
			Help: "Entries in the snapshot written by the last run",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagewatch_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed run",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagewatch_run_duration_seconds",
			Help: "Wall-clock duration of the last run",
		}),
	}

	reg.MustRegister(
		m.buildInfo,
		m.targets,
		m.failuresTotal,
		m.fetchDur,
		m.respBytes,
		m.snapshotEntries,
		m.lastRunTimestamp,
		m.runDuration,
	)

	info := version.Get()
	m.buildInfo.WithLabelValues(info.Version, info.Commit, info.BuildDate,
		boolLabel(info.Dirty), info.GoVersion).Set(1)

	// Pre-create label sets so all statuses appear even when zero.
	for _, s := range []watch.Status{watch.StatusChanged, watch.StatusUnchanged, watch.StatusFailed} {
		m.targets.WithLabelValues(string(s))
	}

	return m
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// Record folds a run result into the metrics.
func (m *RunMetrics) Record(res *watch.Result, elapsed time.Duration) {
	if res == nil {
		return
	}

	counts := make(map[watch.Status]int)
	for _, o := range res.Outcomes {
		counts[o.Status]++
		if o.Duration > 0 {
			m.fetchDur.Observe(o.Duration.Seconds())
		}
		if o.Status != watch.StatusFailed {
			m.respBytes.Observe(float64(o.Size))
		}
	}
	for _, s := range []watch.Status{watch.StatusChanged, watch.StatusUnchanged, watch.StatusFailed} {
		m.targets.WithLabelValues(string(s)).Set(float64(counts[s]))
	}

	for _, f := range res.Failures {
		m.failuresTotal.WithLabelValues(FailureReason(f.Err)).Inc()
	}

	m.snapshotEntries.Set(float64(res.Snapshot.Len()))
	m.lastRunTimestamp.Set(float64(res.RunAt.Unix()))
	m.runDuration.Set(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format. The file
// is written to a temporary name and renamed into place.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// FailureReason classifies a per-target failure for the reason label.
func FailureReason(err error) string {
	var re *redact.RuleError
	switch {
	case errors.As(err, &re):
		return ReasonRules
	case errors.Is(err, fetcher.ErrStatus):
		return ReasonStatus
	case errors.Is(err, fetcher.ErrBodyTooLarge):
		return ReasonTooLarge
	case errors.Is(err, fetcher.ErrAntiBot):
		return ReasonAntiBot
	case errors.Is(err, fetcher.ErrChallengeTimeout):
		return ReasonChallenge
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonTransport
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
