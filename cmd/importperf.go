package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/acwi-research/culture-cli/internal/perfload"
)

var importPerfCmd = &cobra.Command{
	Use:   "import-perf <workbook.xlsx>",
	Short: "Import financial performance metrics from the asset manager workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		metrics, err := perfload.Load(args[0])
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			return eris.New("workbook contains no company rows")
		}

		for _, m := range metrics {
			if err := env.Store.UpsertPerformance(ctx, m); err != nil {
				return err
			}
		}

		fmt.Printf("imported performance metrics for %d companies\n", len(metrics))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importPerfCmd)
}
