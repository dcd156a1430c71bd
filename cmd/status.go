package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/monitoring"
)

var statusAlert bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the run log for stale (region, period) slots",
	Long:  "Scans recent run outcomes per region and period. A slot whose latest runs are an unbroken streak of soft failures at or above the threshold is escalated. With --alert, escalations are also posted to the configured webhook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		regions, _, err := initRegistries()
		if err != nil {
			return err
		}

		runLog, err := initRunLog(ctx)
		if err != nil {
			return err
		}
		defer runLog.Close()

		checker := monitoring.NewChecker(runLog, cfg.Monitoring)
		escalations, err := checker.Evaluate(ctx, regions.Codes())
		if err != nil {
			return err
		}

		if len(escalations) == 0 {
			zap.L().Info("all slots healthy", zap.Int("regions", len(regions.Codes())))
			return nil
		}

		for _, e := range escalations {
			zap.L().Warn("stale slot",
				zap.String("region", e.Region),
				zap.String("period", string(e.Period)),
				zap.Int("consecutive", e.Consecutive),
				zap.String("last_kind", string(e.LastKind)),
			)
		}

		if statusAlert {
			sent := monitoring.NewAlerter(cfg.Monitoring).Send(ctx, escalations)
			zap.L().Info("alerts sent", zap.Int("sent", sent), zap.Int("escalations", len(escalations)))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(escalations)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAlert, "alert", false, "post escalations to the monitoring webhook")
	rootCmd.AddCommand(statusCmd)
}
