package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <url> [url...]",
	Short: "Extract AI risk disclosures from SEC filings into the warehouse",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Ingestor.Run(ctx, args)
		if err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.String("run_id", report.RunID),
			zap.Int("written", report.Count(model.OutcomeWritten)),
			zap.Int("skipped", report.Count(model.OutcomeSkipped)),
			zap.Int("failed", report.Count(model.OutcomeFailed)),
			zap.Int("unclassified", report.Count(model.OutcomeUnclassified)),
		)
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
