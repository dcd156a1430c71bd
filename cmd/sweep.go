package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/store"
)

var (
	sweepWindow int
	sweepDryRun bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete bulletins older than the retention window",
	Long:  "Removes bulletin files dated strictly before today minus the window and rebuilds the index. Today's bulletins are never deleted regardless of window. With --dry-run, reports what would be deleted without touching anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		window := sweepWindow
		if window == 0 {
			window = cfg.Retention.Days
		}

		st := store.New(cfg.Data.Dir)
		today := time.Now().UTC().Format(model.DateLayout)

		report, err := st.Sweep(today, window, sweepDryRun)
		if err != nil {
			return err
		}

		zap.L().Info("sweep finished",
			zap.String("cutoff", report.Cutoff),
			zap.Int("deleted", len(report.Deleted)),
			zap.Bool("dry_run", report.DryRun),
		)
		return nil
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepWindow, "window", 0, "retention window in days (default from config)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report deletions without performing them")
	rootCmd.AddCommand(sweepCmd)
}
