// Package commands implements the CLI commands for pagewatch.
package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pagewatch/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pagewatch",
	Short: "Detect substantive changes to a list of web pages",
	Long: `pagewatch fetches every page on a watch list, strips markup that changes
on every request (scripts, comments, form state tokens, cache-busting
query strings, whitespace), fingerprints what is left and reports the
pages whose fingerprint differs from the previous run.

The watch list has one URL per line, optionally followed by ";name" to
apply the redaction rules in <ignore-dir>/name. Run it from cron or a
systemd timer; every run rewrites the snapshot file.

Examples:
  # Check pages.txt against checksum.csv
  pagewatch run

  # Machine-readable report, four fetches at a time
  pagewatch run --format json --concurrency 4

  # See what a page looks like after cleaning, while writing rules
  pagewatch clean --rules news https://example.com/news`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.pagewatch.yaml or ./.pagewatch.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".pagewatch")
		viper.SetConfigType("yaml")
	}

	// PAGEWATCH_MAX_BODY_SIZE etc.
	viper.SetEnvPrefix("PAGEWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
