package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/report"
)

var runAuto bool

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Update channels from an interactive menu, or all at once with --auto",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			printSettings(out, cfg)
			s, err := connect(cmd.Context(), cfg, out)
			if err != nil {
				return err
			}
			if runAuto {
				out.Infof("Auto mode: updating all channels")
				_, err := s.BatchUpdate(cmd.Context(), batchOptions(cfg, true))
				return err
			}
			return runMenu(cmd.Context(), s, cfg, cmd.InOrStdin())
		},
	}
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "Update every matching channel without prompting; channel names are masked")
	rootCmd.AddCommand(runCmd)
}
