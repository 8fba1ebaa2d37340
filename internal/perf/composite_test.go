package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeScoreAllAtPeerMean(t *testing.T) {
	peers := DefaultPeerStats()
	m := Metrics{
		Company:         "Acme",
		ROE5yAvg:        fptr(peers.ROE.Mean),
		RevenueGrowth5y: fptr(peers.RevenueGrowth.Mean),
		TSRCAGR5y:       fptr(peers.TSR.Mean),
		OpMargin5yAvg:   fptr(peers.Margin.Mean),
	}

	score := CompositeScore(m, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 50.0, *score, 1e-9)
}

func TestCompositeScoreNoMetrics(t *testing.T) {
	assert.Nil(t, CompositeScore(Metrics{Company: "Acme"}, DefaultPeerStats()))
}

func TestCompositeScoreSingleComponent(t *testing.T) {
	peers := DefaultPeerStats()
	// one stddev above the peer mean on the only present metric
	m := Metrics{Company: "Acme", ROE5yAvg: fptr(peers.ROE.Mean + peers.ROE.Std)}

	score := CompositeScore(m, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 75.0, *score, 1e-9)
}

func TestCompositeScoreClipsOutliers(t *testing.T) {
	peers := DefaultPeerStats()

	high := Metrics{Company: "Up", ROE5yAvg: fptr(peers.ROE.Mean + 50*peers.ROE.Std)}
	score := CompositeScore(high, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 100.0, *score, 1e-9)

	low := Metrics{Company: "Down", ROE5yAvg: fptr(peers.ROE.Mean - 50*peers.ROE.Std)}
	score = CompositeScore(low, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 0.0, *score, 1e-9)
}

func TestCompositeScoreWeightRedistribution(t *testing.T) {
	peers := DefaultPeerStats()
	// two components, both exactly one stddev up: weighted average of z is
	// still 1 whatever the weights, so the score matches the single case
	m := Metrics{
		Company:       "Acme",
		ROE5yAvg:      fptr(peers.ROE.Mean + peers.ROE.Std),
		OpMargin5yAvg: fptr(peers.Margin.Mean + peers.Margin.Std),
	}

	score := CompositeScore(m, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 75.0, *score, 1e-9)
}

func TestCompositeScoreBounded(t *testing.T) {
	peers := DefaultPeerStats()
	for _, roe := range []float64{-100, -10, 0, 15, 40, 500} {
		for _, growth := range []float64{-50, 0, 5, 80} {
			m := Metrics{Company: "Acme", ROE5yAvg: fptr(roe), RevenueGrowth5y: fptr(growth)}
			score := CompositeScore(m, peers)
			require.NotNil(t, score)
			assert.GreaterOrEqual(t, *score, 0.0)
			assert.LessOrEqual(t, *score, 100.0)
		}
	}
}

func TestCompositeScoreZeroStd(t *testing.T) {
	peers := DefaultPeerStats()
	peers.ROE.Std = 0

	// the degenerate ROE component drops out entirely, so the score is
	// TSR alone at one stddev up
	m := Metrics{
		Company:   "Acme",
		ROE5yAvg:  fptr(99),
		TSRCAGR5y: fptr(peers.TSR.Mean + peers.TSR.Std),
	}
	score := CompositeScore(m, peers)
	require.NotNil(t, score)
	assert.InDelta(t, 75.0, *score, 1e-9)

	// when every present component is degenerate there is no score
	only := Metrics{Company: "Acme", ROE5yAvg: fptr(99)}
	assert.Nil(t, CompositeScore(only, peers))
}
