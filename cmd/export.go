package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/warehouse-rag/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <path.xlsx>",
	Short: "Write every AI risk query result to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		return export.WriteWorkbook(ctx, env.Queries, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
