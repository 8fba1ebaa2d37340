package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/perf"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <profiles|correlations>",
	Short: "Export culture profiles or correlation results as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}
		w := csv.NewWriter(out)
		defer w.Flush()

		switch args[0] {
		case "profiles":
			return exportProfiles(cmd, env, w)
		case "correlations":
			return exportCorrelations(cmd, env, w)
		default:
			return eris.Errorf("unknown export target: %s", args[0])
		}
	},
}

func exportProfiles(cmd *cobra.Command, env *appEnv, w *csv.Writer) error {
	profiles, err := env.allProfiles(cmd.Context())
	if err != nil {
		return err
	}

	header := []string{"company", "review_count", "scored_reviews", "overall_rating"}
	for _, dim := range culture.HofstedeDimensions() {
		header = append(header, string(dim), string(dim)+"_evidence")
	}
	for _, dim := range culture.MITDimensions() {
		header = append(header, string(dim), string(dim)+"_evidence")
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "write csv header")
	}

	for _, p := range profiles {
		row := []string{
			p.Company,
			strconv.Itoa(p.ReviewCount),
			strconv.Itoa(p.ScoredReviews),
			formatFloat(p.OverallRating),
		}
		for _, dim := range culture.HofstedeDimensions() {
			dp := p.Hofstede[dim]
			row = append(row, formatFloat(dp.Value), strconv.Itoa(dp.TotalEvidence))
		}
		for _, dim := range culture.MITDimensions() {
			dp := p.MIT[dim]
			row = append(row, formatFloat(dp.Value), strconv.Itoa(dp.TotalEvidence))
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}

	fmt.Fprintf(os.Stderr, "exported %d profiles\n", len(profiles))
	return nil
}

func exportCorrelations(cmd *cobra.Command, env *appEnv, w *csv.Writer) error {
	ctx := cmd.Context()
	profiles, err := env.allProfiles(ctx)
	if err != nil {
		return err
	}
	metrics, err := env.Store.AllPerformance(ctx)
	if err != nil {
		return err
	}
	analysis := perf.Correlate(profiles, metrics)

	if err := w.Write([]string{"framework", "dimension", "metric", "correlation", "p_value", "significant", "sample_size"}); err != nil {
		return eris.Wrap(err, "write csv header")
	}

	rows := 0
	for _, dim := range culture.HofstedeDimensions() {
		for _, metric := range perf.AnalyzedMetrics() {
			if res, ok := analysis.Hofstede[dim][metric]; ok {
				if err := writeCorrelationRow(w, "hofstede", string(dim), metric, res); err != nil {
					return err
				}
				rows++
			}
		}
	}
	for _, dim := range culture.MITDimensions() {
		for _, metric := range perf.AnalyzedMetrics() {
			if res, ok := analysis.MIT[dim][metric]; ok {
				if err := writeCorrelationRow(w, "mit", string(dim), metric, res); err != nil {
					return err
				}
				rows++
			}
		}
	}

	fmt.Fprintf(os.Stderr, "exported %d correlation pairs\n", rows)
	return nil
}

func writeCorrelationRow(w *csv.Writer, framework, dim string, metric perf.Metric, res perf.Result) error {
	return eris.Wrap(w.Write([]string{
		framework,
		dim,
		string(metric),
		formatFloat(res.Correlation),
		formatFloat(res.PValue),
		strconv.FormatBool(res.Significant),
		strconv.Itoa(res.SampleSize),
	}), "write csv row")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
