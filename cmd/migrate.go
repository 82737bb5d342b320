package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the chunk and filings tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.EnsureChunkTable(ctx); err != nil {
			return eris.Wrap(err, "migrate chunk table")
		}
		if err := env.Store.EnsureFilingTables(ctx); err != nil {
			return eris.Wrap(err, "migrate filings tables")
		}

		zap.L().Info("warehouse tables ready", zap.String("driver", cfg.Warehouse.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
