package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	clifetcher "github.com/jmylchreest/pagewatch/cmd/pagewatch/fetcher"
	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/internal/metrics"
	"github.com/jmylchreest/pagewatch/internal/output"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/redact"
	"github.com/jmylchreest/pagewatch/pkg/snapshot"
	"github.com/jmylchreest/pagewatch/pkg/watch"
	"github.com/jmylchreest/pagewatch/pkg/watchlist"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every watched page and report changes",
	Long: `Fetch every URL on the watch list, compare its cleaned fingerprint with
the previous snapshot and print the pages that changed.

Failed fetches are reported and dropped from the new snapshot, so a page
that comes back is reported as changed. The snapshot is rewritten at the
end of every completed run; an interrupted run leaves it untouched.

A snapshot path ending in .db, .sqlite or .sqlite3 is stored in SQLite,
anything else as CSV rows of url,fingerprint,last_changed.

Examples:
  pagewatch run
  pagewatch run --pages sites.txt --snapshot state.db --ignore-dir rules
  pagewatch run --fetch-mode dynamic --wait-selector "#content"
  pagewatch run --metrics-file /var/lib/node_exporter/pagewatch.prom`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()

	// Inputs and state
	flags.StringP("pages", "p", defaultPages, "watch list file")
	flags.StringP("snapshot", "s", defaultSnapshot, "snapshot file (.csv, or .db/.sqlite for SQLite)")
	flags.String("ignore-dir", defaultIgnoreDir, "directory holding redaction rule files")

	// Fetch settings
	flags.String("fetch-mode", defaultFetchMode, "fetch mode: static, dynamic")
	flags.Duration("timeout", defaultTimeout, "per-page fetch timeout")
	flags.IntP("concurrency", "c", defaultConcurrency, "pages fetched in parallel")
	flags.Float64("rate", 0, "maximum fetches started per second (0=unlimited)")
	flags.String("max-body-size", defaultMaxBodySize, "fail pages larger than this (e.g., 512KB, 10MB; 0=no limit)")
	flags.String("user-agent", "", "User-Agent header (default pagewatch/<version>)")
	flags.Bool("detect-challenge", false, "treat bot-challenge pages (Cloudflare, CAPTCHA) as fetch failures")
	flags.String("wait-selector", "", "CSS selector to wait for in dynamic fetch mode")

	// Output settings
	flags.String("format", defaultFormat, "report format: text, json, jsonl, yaml")
	flags.StringP("output", "o", "", "report file (default: stdout)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")

	for key, flag := range map[string]string{
		"pages":            "pages",
		"snapshot":         "snapshot",
		"ignore_dir":       "ignore-dir",
		"fetch_mode":       "fetch-mode",
		"timeout":          "timeout",
		"concurrency":      "concurrency",
		"rate":             "rate",
		"max_body_size":    "max-body-size",
		"user_agent":       "user-agent",
		"detect_challenge": "detect-challenge",
		"wait_selector":    "wait-selector",
		"format":           "format",
		"output":           "output",
		"metrics_file":     "metrics-file",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runWatch(ctx, cfg, cmd.OutOrStdout())
}

// runWatch performs one complete run: load inputs, check every target,
// report, then persist the new snapshot and optional metrics.
func runWatch(ctx context.Context, cfg runConfig, stdout io.Writer) error {
	start := time.Now()

	targets, err := watchlist.Load(cfg.Pages)
	if err != nil {
		return err
	}

	store := snapshot.Open(cfg.Snapshot)
	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}

	logger.Debug("run starting",
		"targets", len(targets),
		"snapshot", store.Location(),
		"prior_entries", prior.Len(),
		"fetch_mode", cfg.FetchMode)

	f, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := watch.New(f,
		watch.WithRuleLoader(redact.NewDirLoader(cfg.IgnoreDir)),
		watch.WithConcurrency(cfg.Concurrency),
		watch.WithRateLimit(cfg.Rate, 1),
		watch.WithFetchOptions(cfg.fetchOptions()),
	)

	res, err := w.Run(ctx, targets, prior)
	if err != nil {
		logger.Warn("run interrupted, snapshot not written", "error", err)
		return err
	}

	reportErr := writeReport(cfg, stdout, res)
	if reportErr != nil {
		logger.Error("failed to write report", "error", reportErr)
	}

	if err := store.Save(ctx, res.Snapshot); err != nil {
		logger.Error("failed to save snapshot", "path", store.Location(), "error", err)
		return errors.Join(reportErr, err)
	}

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.Record(res, time.Since(start))
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
			return errors.Join(reportErr, fmt.Errorf("write metrics: %w", err))
		}
	}

	logger.Info("run complete",
		"targets", len(targets),
		"changed", len(res.Changes),
		"failed", len(res.Failures),
		"duration", time.Since(start).Round(time.Millisecond))

	return reportErr
}

// newFetcher builds the fetcher for the configured mode.
func newFetcher(cfg runConfig) (fetcher.Fetcher, error) {
	switch cfg.FetchMode {
	case "dynamic":
		return clifetcher.NewDynamicFetcher(clifetcher.Config{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		})
	case "static", "":
		return fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: cfg.MaxBodySize,
		}), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use 'static' or 'dynamic')", cfg.FetchMode)
	}
}

// writeReport renders res to cfg.Output, or stdout when unset.
func writeReport(cfg runConfig, stdout io.Writer, res *watch.Result) error {
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	out := stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	writer, err := output.NewWriter(out, format)
	if err != nil {
		return err
	}
	return writer.WriteReport(output.NewReport(res))
}
