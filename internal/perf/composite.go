package perf

import "math"

// Component weights of the composite performance score. Weights of missing
// components are redistributed proportionally over the present ones.
const (
	roeWeight    = 0.30
	growthWeight = 0.25
	tsrWeight    = 0.25
	marginWeight = 0.20

	// zClip bounds each component's z-score so a single outlier metric
	// cannot dominate the composite.
	zClip = 2.0
)

// CompositeScore maps a company's metrics onto a 0-100 peer-relative scale:
// each present component is z-scored against the peer distribution, clipped
// to ±2, weight-averaged, and centered at 50 with 25 points per unit z.
// A component whose peer distribution has zero spread is excluded together
// with its weight. Returns nil when no usable component remains.
func CompositeScore(m Metrics, peers PeerStats) *float64 {
	type component struct {
		value  *float64
		stats  MetricStats
		weight float64
	}
	components := []component{
		{m.ROE5yAvg, peers.ROE, roeWeight},
		{m.RevenueGrowth5y, peers.RevenueGrowth, growthWeight},
		{m.TSRCAGR5y, peers.TSR, tsrWeight},
		{m.OpMargin5yAvg, peers.Margin, marginWeight},
	}

	var weighted, totalWeight float64
	for _, c := range components {
		// zero peer spread cannot rank the company on this metric
		if c.value == nil || c.stats.Std <= 0 {
			continue
		}
		weighted += zScore(*c.value, c.stats) * c.weight
		totalWeight += c.weight
	}
	if totalWeight == 0 {
		return nil
	}

	score := 50 + 25*(weighted/totalWeight)
	score = math.Round(math.Min(100, math.Max(0, score))*100) / 100
	return &score
}

func zScore(v float64, s MetricStats) float64 {
	if s.Std <= 0 {
		return 0
	}
	z := (v - s.Mean) / s.Std
	return math.Min(zClip, math.Max(-zClip, z))
}
