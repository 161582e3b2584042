package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pagewatch/internal/version"
	"github.com/jmylchreest/pagewatch/pkg/errdefs"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
)

// Defaults shared by flags and config loading.
const (
	defaultPages       = "pages.txt"
	defaultSnapshot    = "checksum.csv"
	defaultIgnoreDir   = "ignore"
	defaultTimeout     = 10 * time.Second
	defaultFetchMode   = "static"
	defaultConcurrency = 1
	defaultMaxBodySize = "0"
	defaultFormat      = "text"
)

// runConfig is the resolved configuration of a run.
type runConfig struct {
	Pages           string        `validate:"required"`
	Snapshot        string        `validate:"required"`
	IgnoreDir       string        `validate:"required"`
	Timeout         time.Duration `validate:"gt=0"`
	FetchMode       string        `validate:"oneof=static dynamic"`
	Concurrency     int           `validate:"min=1,max=64"`
	Rate            float64       `validate:"gte=0"`
	MaxBodySize     int           `validate:"gte=0"`
	UserAgent       string
	DetectChallenge bool
	WaitSelector    string
	Format          string `validate:"oneof=text json jsonl yaml"`
	Output          string
	MetricsFile     string
}

// fetchOptions maps the configuration onto per-request fetch options.
func (c runConfig) fetchOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		MaxBodySize:     c.MaxBodySize,
		DetectChallenge: c.DetectChallenge,
		WaitSelector:    c.WaitSelector,
	}
}

// setDefaults registers default values on v so that config files and
// environment variables work without flags.
func setDefaults(v *viper.Viper) {
	v.SetDefault("pages", defaultPages)
	v.SetDefault("snapshot", defaultSnapshot)
	v.SetDefault("ignore_dir", defaultIgnoreDir)
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("fetch_mode", defaultFetchMode)
	v.SetDefault("concurrency", defaultConcurrency)
	v.SetDefault("max_body_size", defaultMaxBodySize)
	v.SetDefault("format", defaultFormat)
}

// loadRunConfig reads and validates the run configuration from v.
// Any problem is a *errdefs.ConfigError.
func loadRunConfig(v *viper.Viper) (runConfig, error) {
	setDefaults(v)

	cfg := runConfig{
		Pages:           v.GetString("pages"),
		Snapshot:        v.GetString("snapshot"),
		IgnoreDir:       v.GetString("ignore_dir"),
		Timeout:         v.GetDuration("timeout"),
		FetchMode:       strings.ToLower(v.GetString("fetch_mode")),
		Concurrency:     v.GetInt("concurrency"),
		Rate:            v.GetFloat64("rate"),
		UserAgent:       v.GetString("user_agent"),
		DetectChallenge: v.GetBool("detect_challenge"),
		WaitSelector:    v.GetString("wait_selector"),
		Format:          strings.ToLower(v.GetString("format")),
		Output:          v.GetString("output"),
		MetricsFile:     v.GetString("metrics_file"),
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	size, err := parseSize(v.GetString("max_body_size"))
	if err != nil {
		return cfg, errdefs.NewConfigError("config", "max_body_size", err)
	}
	cfg.MaxBodySize = size

	if err := validateConfig(cfg); err != nil {
		return cfg, errdefs.NewConfigError("config", "", err)
	}
	return cfg, nil
}

// parseSize parses a humanized byte count. Empty or "0" means the fetcher
// default.
func parseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int(n), nil
}

var validate = validator.New()

// validateConfig checks struct tags and renders violations as one error.
func validateConfig(cfg runConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", configKey(e.Field()), formatValidationError(e)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return "must be positive"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// configKey maps a runConfig field name to its config key.
func configKey(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
