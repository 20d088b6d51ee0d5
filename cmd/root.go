package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/config"
	"github.com/lkarlslund/channelsync/pkg/logutil"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "channelsync",
	Short: "Refresh gateway channel model lists from their providers",
	Long: "channelsync asks an LLM gateway admin panel (OneHub) to probe the upstream provider of each\n" +
		"channel and replaces the channel's model list with the live catalog.",
}

// Execute runs the command line. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logutil.Configure(logLevel)
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Config TOML path")
}
