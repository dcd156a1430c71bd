package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/model"
)

var (
	fetchRegion     string
	fetchPeriod     string
	fetchDate       string
	fetchAllRegions bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and publish a bulletin for a region and period",
	Long:  "Queries the upstream model, normalizes the response, suppresses articles carried over from the previous edition, and writes the bulletin atomically. Exits 0 on success or soft failure (the prior bulletin stands), 1 on hard failure.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		period, err := model.ParsePeriod(fetchPeriod)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}
		if !fetchAllRegions && fetchRegion == "" {
			return eris.New("fetch: --region is required unless --all-regions is set")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var outcomes []model.Outcome
		if fetchAllRegions {
			outcomes = env.Pipeline.RunAll(ctx, period, fetchDate)
		} else {
			outcomes = []model.Outcome{env.Pipeline.Run(ctx, fetchRegion, period, fetchDate)}
		}

		hard := false
		for _, o := range outcomes {
			switch o.Status {
			case model.RunSuccess:
				zap.L().Info("bulletin published",
					zap.String("bulletin", o.BulletinID),
					zap.Int("articles", o.ArticleCount),
					zap.Int("duplicates", o.Duplicates),
					zap.Float64("cost_usd", o.CostUSD),
				)
			case model.RunSoftFailure:
				zap.L().Warn("run failed, previous bulletin stands",
					zap.String("region", o.Region),
					zap.String("period", string(o.Period)),
					zap.String("kind", string(o.FailureKind)),
					zap.String("error", o.Error),
				)
			case model.RunHardFailure:
				hard = true
				zap.L().Error("run failed hard",
					zap.String("region", o.Region),
					zap.String("period", string(o.Period)),
					zap.String("kind", string(o.FailureKind)),
					zap.String("error", o.Error),
				)
			}
		}

		if hard {
			_ = zap.L().Sync()
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchRegion, "region", "", "region code (e.g. usa)")
	fetchCmd.Flags().StringVar(&fetchPeriod, "period", "", "edition period: morning or evening")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "edition date YYYY-MM-DD (default: today in the region's timezone)")
	fetchCmd.Flags().BoolVar(&fetchAllRegions, "all-regions", false, "run every registered region concurrently")
	_ = fetchCmd.MarkFlagRequired("period")
	rootCmd.AddCommand(fetchCmd)
}
