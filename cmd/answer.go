package main

import (
	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer <query>",
	Short: "Answer a question from the best-matching Wikipedia article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "answer")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Answer.Run(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)
}
