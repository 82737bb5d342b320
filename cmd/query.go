package main

import (
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [index|name]",
	Short: "Run one of the fixed AI risk queries",
	Long: `Runs a fixed analytical query over the filings tables and prints the
result as column-oriented JSON. Queries by index:

  0 risk-distribution
  1 operational-risks
  2 risk-evolution
  3 risk-timeline
  4 risk-profiles
  5 company-summary

Unknown identifiers fall back to risk-distribution.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		_, rs, err := env.Queries.Run(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rs)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
