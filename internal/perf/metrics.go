// Package perf links culture profiles to financial performance: composite
// peer-relative scoring, per-dimension correlation, and culture alignment.
package perf

import (
	"time"

	"github.com/acwi-research/culture-cli/internal/stats"
)

// Metrics holds one company's financial performance figures. Every metric is
// optional: a nil field is excluded from scoring, never treated as zero.
type Metrics struct {
	Company string `json:"company"`
	Ticker  string `json:"ticker,omitempty"`
	Sector  string `json:"sector,omitempty"`

	ROE5yAvg        *float64 `json:"roe_5y_avg,omitempty"`
	RevenueGrowth5y *float64 `json:"revenue_growth_5y,omitempty"`
	TSRCAGR5y       *float64 `json:"tsr_cagr_5y,omitempty"`
	OpMargin5yAvg   *float64 `json:"op_margin_5y_avg,omitempty"`

	ROELatest      *float64 `json:"roe_latest,omitempty"`
	OpMarginLatest *float64 `json:"op_margin_latest,omitempty"`
	NetMarginLatest *float64 `json:"net_margin_latest,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// MetricStats is a metric's peer distribution used for z-scoring.
type MetricStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// PeerStats holds the peer distributions of every composite-score component.
type PeerStats struct {
	ROE           MetricStats `json:"roe"`
	RevenueGrowth MetricStats `json:"revenue_growth"`
	TSR           MetricStats `json:"tsr"`
	Margin        MetricStats `json:"margin"`
	SampleSize    int         `json:"sample_size"`
}

// DefaultPeerStats returns the hardcoded fallback distributions used when
// the peer sample is empty or degenerate. Values are calibrated to the asset
// management universe (ROE and growth figures in percent, margins as
// fractions).
func DefaultPeerStats() PeerStats {
	return PeerStats{
		ROE:           MetricStats{Mean: 15, Std: 5},
		RevenueGrowth: MetricStats{Mean: 5, Std: 10},
		TSR:           MetricStats{Mean: 10, Std: 15},
		Margin:        MetricStats{Mean: 0.30, Std: 0.10},
	}
}

// ComputePeerStats derives per-metric mean and sample stddev over all
// companies carrying a non-null value, falling back to the defaults for any
// metric whose sample is empty or too small for a stddev. If sector is
// non-empty only companies in that sector contribute.
func ComputePeerStats(all []Metrics, sector string) PeerStats {
	var roe, growth, tsr, margin []float64
	n := 0
	for _, m := range all {
		if sector != "" && m.Sector != sector {
			continue
		}
		n++
		if m.ROE5yAvg != nil {
			roe = append(roe, *m.ROE5yAvg)
		}
		if m.RevenueGrowth5y != nil {
			growth = append(growth, *m.RevenueGrowth5y)
		}
		if m.TSRCAGR5y != nil {
			tsr = append(tsr, *m.TSRCAGR5y)
		}
		if m.OpMargin5yAvg != nil {
			margin = append(margin, *m.OpMargin5yAvg)
		}
	}

	defaults := DefaultPeerStats()
	return PeerStats{
		ROE:           metricStats(roe, defaults.ROE),
		RevenueGrowth: metricStats(growth, defaults.RevenueGrowth),
		TSR:           metricStats(tsr, defaults.TSR),
		Margin:        metricStats(margin, defaults.Margin),
		SampleSize:    n,
	}
}

func metricStats(vals []float64, fallback MetricStats) MetricStats {
	if len(vals) == 0 {
		return fallback
	}
	ms := MetricStats{Mean: stats.Mean(vals), Std: fallback.Std}
	if len(vals) > 1 {
		ms.Std = stats.StdDev(vals)
	}
	return ms
}
