package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/report"
)

var (
	batchStatus int
	batchDelay  float64
	batchMask   bool
)

func init() {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Refresh the model list of every OpenAI channel matching the status filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("status") {
				cfg.TargetChannelStatus = batchStatus
			}
			if cmd.Flags().Changed("delay") {
				cfg.DelaySeconds = batchDelay
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("flags: %w", err)
			}
			out := report.New(cmd.OutOrStdout())
			printSettings(out, cfg)
			s, err := connect(cmd.Context(), cfg, out)
			if err != nil {
				return err
			}
			_, err = s.BatchUpdate(cmd.Context(), batchOptions(cfg, batchMask))
			return err
		},
	}
	batchCmd.Flags().IntVar(&batchStatus, "status", 0, "Override TARGET_CHANNEL_STATUS (0 all, 1 enabled, 2 manually disabled, 3 auto disabled)")
	batchCmd.Flags().Float64Var(&batchDelay, "delay", 0, "Override DELAY_TIME, the maximum pause in seconds between channels")
	batchCmd.Flags().BoolVar(&batchMask, "mask", false, "Mask channel names in the output")
	rootCmd.AddCommand(batchCmd)
}
