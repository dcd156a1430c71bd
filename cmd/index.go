package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the bulletin index from the files on disk",
	Long:  "Re-scans the data directory and writes a fresh index.json. Use after manual file surgery or a suspected stale index.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.New(cfg.Data.Dir)

		idx, err := st.RebuildIndex()
		if err != nil {
			return err
		}

		zap.L().Info("index rebuilt", zap.Int("bulletins", len(idx.Bulletins)))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(idx)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
