package perf

import (
	"math"
	"sort"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/stats"
)

// Metric names a financial series in correlation output.
type Metric string

const (
	MetricROE           Metric = "roe_5y_avg"
	MetricRevenueGrowth Metric = "revenue_growth_5y"
	MetricTSR           Metric = "tsr_cagr_5y"
	MetricOpMargin      Metric = "op_margin_5y_avg"
	MetricComposite     Metric = "composite_score"
)

// Metrics analyzed, in output order.
func AnalyzedMetrics() []Metric {
	return []Metric{MetricROE, MetricRevenueGrowth, MetricTSR, MetricOpMargin, MetricComposite}
}

// minSamplePairs is the fewest complete (culture, metric) pairs a dimension
// needs before its correlation is reported. Below it the estimate is noise.
const minSamplePairs = 5

// significanceLevel is the two-tailed alpha for flagging correlations.
const significanceLevel = 0.05

// Result is one (dimension, metric) correlation.
type Result struct {
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	SampleSize  int     `json:"sample_size"`
}

// SummaryEntry names one dimension/metric pair in the ranked summary.
type SummaryEntry struct {
	Dimension   string  `json:"dimension"`
	Framework   string  `json:"framework"`
	Metric      Metric  `json:"metric"`
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// Analysis is the full correlation matrix plus a ranked summary.
type Analysis struct {
	Hofstede  map[culture.HofstedeDimension]map[Metric]Result `json:"hofstede"`
	MIT       map[culture.MITDimension]map[Metric]Result      `json:"mit"`
	Companies int                                             `json:"companies"`

	// Summary ranks pairs by correlation: the five most positive and the
	// five most negative.
	TopPositive []SummaryEntry `json:"top_positive"`
	TopNegative []SummaryEntry `json:"top_negative"`
}

// Correlate joins culture profiles with financial metrics by company and
// computes Pearson correlations for every (dimension, metric) pair. Pairs
// with fewer than minSamplePairs complete observations, or with a degenerate
// (constant) series, are omitted entirely rather than reported as zero.
//
// Profiles are expected to be normalized; the composite score is derived
// from the supplied metrics against their own peer distribution.
func Correlate(profiles []*culture.CompanyProfile, metrics []Metrics) *Analysis {
	byCompany := make(map[string]Metrics, len(metrics))
	for _, m := range metrics {
		byCompany[m.Company] = m
	}

	peers := ComputePeerStats(metrics, "")

	// One row per company having both a profile and metrics.
	type row struct {
		profile *culture.CompanyProfile
		fin     map[Metric]*float64
	}
	var rows []row
	for _, p := range profiles {
		m, ok := byCompany[p.Company]
		if !ok {
			continue
		}
		rows = append(rows, row{
			profile: p,
			fin: map[Metric]*float64{
				MetricROE:           m.ROE5yAvg,
				MetricRevenueGrowth: m.RevenueGrowth5y,
				MetricTSR:           m.TSRCAGR5y,
				MetricOpMargin:      m.OpMargin5yAvg,
				MetricComposite:     CompositeScore(m, peers),
			},
		})
	}

	analysis := &Analysis{
		Hofstede:  make(map[culture.HofstedeDimension]map[Metric]Result, 6),
		MIT:       make(map[culture.MITDimension]map[Metric]Result, 9),
		Companies: len(rows),
	}

	var summary []SummaryEntry

	for _, dim := range culture.HofstedeDimensions() {
		cell := make(map[Metric]Result)
		for _, metric := range AnalyzedMetrics() {
			var xs, ys []float64
			for _, r := range rows {
				// zero-evidence placeholders still count as observations
				dp, ok := r.profile.Hofstede[dim]
				if !ok {
					continue
				}
				fv := r.fin[metric]
				if fv == nil {
					continue
				}
				xs = append(xs, dp.Value)
				ys = append(ys, *fv)
			}
			if res, ok := correlatePair(xs, ys); ok {
				cell[metric] = res
				summary = append(summary, SummaryEntry{
					Dimension:   string(dim),
					Framework:   "hofstede",
					Metric:      metric,
					Correlation: res.Correlation,
					PValue:      res.PValue,
					Significant: res.Significant,
				})
			}
		}
		if len(cell) > 0 {
			analysis.Hofstede[dim] = cell
		}
	}

	for _, dim := range culture.MITDimensions() {
		cell := make(map[Metric]Result)
		for _, metric := range AnalyzedMetrics() {
			var xs, ys []float64
			for _, r := range rows {
				dp, ok := r.profile.MIT[dim]
				if !ok {
					continue
				}
				fv := r.fin[metric]
				if fv == nil {
					continue
				}
				xs = append(xs, dp.Value)
				ys = append(ys, *fv)
			}
			if res, ok := correlatePair(xs, ys); ok {
				cell[metric] = res
				summary = append(summary, SummaryEntry{
					Dimension:   string(dim),
					Framework:   "mit",
					Metric:      metric,
					Correlation: res.Correlation,
					PValue:      res.PValue,
					Significant: res.Significant,
				})
			}
		}
		if len(cell) > 0 {
			analysis.MIT[dim] = cell
		}
	}

	sort.Slice(summary, func(i, j int) bool {
		return summary[i].Correlation > summary[j].Correlation
	})
	analysis.TopPositive = topN(summary, 5)
	reversed := make([]SummaryEntry, len(summary))
	for i, e := range summary {
		reversed[len(summary)-1-i] = e
	}
	analysis.TopNegative = topN(reversed, 5)

	return analysis
}

func correlatePair(xs, ys []float64) (Result, bool) {
	if len(xs) < minSamplePairs {
		return Result{}, false
	}
	r, p, ok := stats.Pearson(xs, ys)
	if !ok {
		return Result{}, false
	}
	return Result{
		Correlation: math.Round(r*10000) / 10000,
		PValue:      math.Round(p*10000) / 10000,
		Significant: p < significanceLevel,
		SampleSize:  len(xs),
	}, true
}

func topN(entries []SummaryEntry, n int) []SummaryEntry {
	if len(entries) < n {
		n = len(entries)
	}
	out := make([]SummaryEntry, n)
	copy(out, entries[:n])
	return out
}
