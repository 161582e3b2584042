package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/internal/version"
	"github.com/jmylchreest/pagewatch/pkg/cleaner"
	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/fingerprint"
	"github.com/jmylchreest/pagewatch/pkg/redact"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <url|file|->",
	Short: "Show a page as it is fingerprinted",
	Long: `Print the canonical content of a page: the body after the built-in
cleaners and an optional redaction rule set, exactly as pagewatch
fingerprints it. Use it to find volatile fragments and to check new
redaction rules before adding them to the watch list.

The argument is a URL (http:// or https://), a file path, or "-" for stdin.
The fingerprint and sizes are written to stderr.

Examples:
  # Canonical content of a page
  pagewatch clean https://example.com/news

  # Same page with the rules in ignore/news applied
  pagewatch clean --rules news https://example.com/news

  # Try a pattern before adding it to a rule file
  pagewatch clean -e 'Visitors today: \d+' https://example.com/news

  # Compare fingerprints of two saved copies
  pagewatch clean --fingerprint-only before.html
  pagewatch clean --fingerprint-only after.html`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	flags := cleanCmd.Flags()
	flags.StringP("rules", "r", "", "redaction rule set name to apply")
	flags.String("ignore-dir", defaultIgnoreDir, "directory holding redaction rule files")
	flags.StringArrayP("pattern", "e", nil, "extra erase pattern, applied after the rule set (repeatable)")
	flags.Bool("raw", false, "skip all cleaning and print the body as fetched")
	flags.Bool("fingerprint-only", false, "print only the fingerprint")
	flags.Duration("timeout", defaultTimeout, "fetch timeout for URLs")
}

// cleanOptions holds the clean command flags.
type cleanOptions struct {
	Rules           string
	IgnoreDir       string
	Patterns        []string
	Raw             bool
	FingerprintOnly bool
}

func runClean(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	opts := cleanOptions{}
	opts.Rules, _ = flags.GetString("rules")
	opts.IgnoreDir, _ = flags.GetString("ignore-dir")
	opts.Patterns, _ = flags.GetStringArray("pattern")
	opts.Raw, _ = flags.GetBool("raw")
	opts.FingerprintOnly, _ = flags.GetBool("fingerprint-only")
	timeout, _ := flags.GetDuration("timeout")
	if !flags.Changed("ignore-dir") && viper.IsSet("ignore_dir") {
		opts.IgnoreDir = viper.GetString("ignore_dir")
	}

	raw, err := readInput(cmd.Context(), args[0], cmd.InOrStdin(), timeout)
	if err != nil {
		logger.Error("failed to read input", "source", args[0], "error", err)
		return err
	}

	stats := !viper.GetBool("quiet")
	return cleanContent(raw, opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), stats)
}

// cleanContent normalizes raw and writes the result to stdout. Size and
// fingerprint details go to stderr when stats is set.
func cleanContent(raw []byte, opts cleanOptions, stdout, stderr io.Writer, stats bool) error {
	var c cleaner.Cleaner = cleaner.NewNoop()
	rules := redact.Empty(opts.Rules)
	adhoc := redact.Empty("command line")
	if !opts.Raw {
		var err error
		rules, err = redact.NewDirLoader(opts.IgnoreDir).Load(opts.Rules)
		if err != nil {
			return err
		}
		adhoc, err = redact.Compile(adhoc.Name, opts.Patterns)
		if err != nil {
			return err
		}
		c = cleaner.Canonical(append(rules.Cleaners(), adhoc.Cleaners()...)...)
	}

	logger.Debug("cleaning content", "cleaner", c.Name(), "rules", rules.Len(), "patterns", adhoc.Len())
	canonical := c.Clean(raw)
	sum := fingerprint.Sum(canonical)

	if opts.FingerprintOnly {
		_, err := fmt.Fprintln(stdout, sum)
		return err
	}

	if _, err := stdout.Write(canonical); err != nil {
		return err
	}
	if len(canonical) > 0 && !bytes.HasSuffix(canonical, []byte("\n")) {
		if _, err := io.WriteString(stdout, "\n"); err != nil {
			return err
		}
	}

	if stats {
		fmt.Fprintf(stderr, "fingerprint: %s\n", sum)
		fmt.Fprintf(stderr, "size:        %s -> %s\n",
			humanize.Bytes(uint64(len(raw))), humanize.Bytes(uint64(len(canonical))))
		for _, rs := range []*redact.RuleSet{rules, adhoc} {
			if rs.Len() == 0 {
				continue
			}
			fmt.Fprintf(stderr, "rules:       %s (%d patterns)\n", rs.Name, rs.Len())
			for i, p := range rs.Patterns() {
				fmt.Fprintf(stderr, "  %2d  %s\n", i+1, p)
			}
		}
	}
	return nil
}

// readInput loads the body named by src: "-" for stdin, an http(s) URL, or
// a file path.
func readInput(ctx context.Context, src string, stdin io.Reader, timeout time.Duration) ([]byte, error) {
	switch {
	case src == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		f := fetcher.NewStatic(fetcher.StaticConfig{UserAgent: version.UserAgent()})
		defer func() { _ = f.Close() }()
		content, err := f.Fetch(ctx, src, fetcher.Options{Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return content.Body, nil
	default:
		return os.ReadFile(src) //#nosec G304 -- CLI tool reads a user-specified file
	}
}
