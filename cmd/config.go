package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/config"
	"github.com/lkarlslund/channelsync/pkg/wizard"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Write the config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return wizard.Terminal().Run(configPath, cfg)
		},
	}
	rootCmd.AddCommand(configCmd)
}
