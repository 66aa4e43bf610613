package main

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/teradrop/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations or indexes to the metadata store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg)
			_, closeRepo, err := openRepository(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			closeRepo()
			return nil
		},
	}
}
