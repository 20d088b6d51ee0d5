package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/gateway"
	"github.com/lkarlslund/channelsync/pkg/report"
)

var updateMask bool

func init() {
	updateCmd := &cobra.Command{
		Use:   "update <channel-id>",
		Short: "Refresh the model list of one channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid channel id %q", args[0])
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			s, err := connect(cmd.Context(), cfg, out)
			if err != nil {
				return err
			}
			ok, err := s.UpdateChannel(cmd.Context(), id, gateway.UpdateOptions{MaskName: updateMask})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("channel %d was not updated", id)
			}
			return nil
		},
	}
	updateCmd.Flags().BoolVar(&updateMask, "mask", false, "Mask the channel name in the output")
	rootCmd.AddCommand(updateCmd)
}
