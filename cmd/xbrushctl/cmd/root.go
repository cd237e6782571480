// Package cmd contains all CLI commands for xbrushctl
package cmd

import (
	"fmt"
	"time"

	"github.com/dfryer1193/xbrush/internal/output"
	"github.com/dfryer1193/xbrush/shared/config"
	"github.com/dfryer1193/xbrush/shared/logging"
	"github.com/spf13/cobra"
)

// cliConfig is the environment the CLI reads; flags override it.
type cliConfig struct {
	SlackWebhookURL string        `env:"SLACK_WEBHOOK_URL"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"warn"`
	MaxDecodePixels int64         `env:"MAX_DECODE_PIXELS" envDefault:"50000000"`
}

var (
	noColor bool
	verbose bool
	cfg     cliConfig
)

var rootCmd = &cobra.Command{
	Use:   "xbrushctl",
	Short: "xBrush image and notification tooling",
	Long: `xbrushctl compresses images the way the xBrush service does, decodes
stored data URIs and sends Slack notifications.

Example usage:
  xbrushctl compress --preset thumbnail photo.jpg   # 400x500 thumbnail
  xbrushctl compress --max-width 1200 *.png         # custom bounds
  xbrushctl decode image.txt --out image.jpg        # data URI to file
  xbrushctl size 1536 1048576                       # human readable sizes
  xbrushctl notify "Deploy finished"                # Slack message`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	cfg = cliConfig{}
	if err := config.ParseEnv(&cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Setup(level, "console")

	return nil
}

func newPrinter(cmd *cobra.Command) *output.Printer {
	return output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(!noColor))
}
