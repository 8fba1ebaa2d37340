package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acwi-research/culture-cli/internal/perf"
)

var correlateFormat string

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate culture dimensions with financial performance",
	Long:  "Joins normalized culture profiles with stored performance metrics and reports Pearson correlations with two-tailed significance for every dimension/metric pair.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		profiles, err := env.allProfiles(ctx)
		if err != nil {
			return err
		}
		metrics, err := env.Store.AllPerformance(ctx)
		if err != nil {
			return err
		}

		analysis := perf.Correlate(profiles, metrics)

		if correlateFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}

		fmt.Printf("companies with both culture and performance data: %d\n\n", analysis.Companies)

		fmt.Println("strongest positive correlations:")
		for _, e := range analysis.TopPositive {
			printSummaryEntry(e)
		}
		fmt.Println("\nstrongest negative correlations:")
		for _, e := range analysis.TopNegative {
			printSummaryEntry(e)
		}
		return nil
	},
}

func printSummaryEntry(e perf.SummaryEntry) {
	marker := " "
	if e.Significant {
		marker = "*"
	}
	fmt.Printf("  %s %-24s x %-20s r=%+.3f  p=%.4f\n",
		marker, e.Framework+"/"+e.Dimension, e.Metric, e.Correlation, e.PValue)
}

func init() {
	correlateCmd.Flags().StringVar(&correlateFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(correlateCmd)
}
