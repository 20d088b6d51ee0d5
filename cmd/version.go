package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/version"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Detailed())
			return nil
		},
	})
}
