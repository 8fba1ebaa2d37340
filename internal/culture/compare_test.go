package culture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedProfile(name string, pr float64, agility float64) *CompanyProfile {
	return &CompanyProfile{
		Company: name,
		Hofstede: map[HofstedeDimension]DimensionProfile{
			ProcessResults: {Value: pr},
		},
		MIT: map[MITDimension]DimensionProfile{
			Agility: {Value: agility},
		},
	}
}

func TestCompare(t *testing.T) {
	p1 := namedProfile("Acme", 0.5, 6.0)
	p2 := namedProfile("Globex", -0.25, 8.0)

	cmp := Compare(p1, p2)

	pr := cmp.Hofstede[ProcessResults]
	assert.InDelta(t, 0.5, pr.Company1, 1e-9)
	assert.InDelta(t, -0.25, pr.Company2, 1e-9)
	assert.InDelta(t, -0.75, pr.Difference, 1e-9)

	ag := cmp.MIT[Agility]
	assert.InDelta(t, 2.0, ag.Difference, 1e-9)

	// every dimension appears even when both profiles are silent on it
	assert.Len(t, cmp.Hofstede, 6)
	assert.Len(t, cmp.MIT, 9)
	assert.Zero(t, cmp.Hofstede[TightLoose].Difference)
}

func TestBenchmarkProfile(t *testing.T) {
	company := namedProfile("Acme", 0.5, 6.0)
	peers := []*CompanyProfile{
		namedProfile("Acme", 0.5, 6.0),
		namedProfile("Globex", -0.2, 8.0),
		namedProfile("Initech", 0.1, 2.0),
		namedProfile("Umbrella", 0.9, 4.0),
	}

	hof, mit := BenchmarkProfile(company, peers)

	assert.InDelta(t, 0.5, hof.Company["process_results"], 1e-9)
	assert.InDelta(t, 0.325, hof.IndustryAverage["process_results"], 1e-9)
	// three of four peers at or below 0.5
	assert.InDelta(t, 75.0, hof.Percentile["process_results"], 1e-9)

	assert.InDelta(t, 6.0, mit.Company["agility"], 1e-9)
	assert.InDelta(t, 5.0, mit.IndustryAverage["agility"], 1e-9)
	assert.InDelta(t, 75.0, mit.Percentile["agility"], 1e-9)
}

func TestBenchmarkProfileNoPeers(t *testing.T) {
	hof, mit := BenchmarkProfile(namedProfile("Acme", 0.5, 6.0), nil)
	require.NotNil(t, hof.Percentile)
	assert.Zero(t, hof.Percentile["process_results"])
	assert.Zero(t, mit.Percentile["agility"])
}
