package culture

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileWithEvidence(reviews int, hof map[HofstedeDimension]DimensionProfile, mit map[MITDimension]DimensionProfile) *CompanyProfile {
	if hof == nil {
		hof = map[HofstedeDimension]DimensionProfile{}
	}
	if mit == nil {
		mit = map[MITDimension]DimensionProfile{}
	}
	return &CompanyProfile{Company: "Acme", ReviewCount: reviews, Hofstede: hof, MIT: mit}
}

func TestNormalizeConfidenceRelative(t *testing.T) {
	p := profileWithEvidence(100,
		map[HofstedeDimension]DimensionProfile{
			ProcessResults: {Value: 0.5, TotalEvidence: 80},
			TightLoose:     {Value: -0.2, TotalEvidence: 20},
		},
		map[MITDimension]DimensionProfile{
			Agility: {Value: 4, TotalEvidence: 40},
		},
	)

	out := NormalizeConfidence(p)

	assert.InDelta(t, 100.0, out.Hofstede[ProcessResults].ConfidenceScore, 1e-9)
	assert.InDelta(t, 25.0, out.Hofstede[TightLoose].ConfidenceScore, 1e-9)
	assert.InDelta(t, 50.0, out.MIT[Agility].ConfidenceScore, 1e-9)

	// input untouched
	assert.Zero(t, p.Hofstede[ProcessResults].ConfidenceScore)
}

func TestNormalizeConfidenceMonotonic(t *testing.T) {
	p := profileWithEvidence(0, nil, map[MITDimension]DimensionProfile{
		Agility:       {TotalEvidence: 10},
		Collaboration: {TotalEvidence: 30},
		Execution:     {TotalEvidence: 90},
	})

	out := NormalizeConfidence(p)
	assert.Less(t, out.MIT[Agility].ConfidenceScore, out.MIT[Collaboration].ConfidenceScore)
	assert.Less(t, out.MIT[Collaboration].ConfidenceScore, out.MIT[Execution].ConfidenceScore)
	assert.InDelta(t, 100.0, out.MIT[Execution].ConfidenceScore, 1e-9)
}

func TestNormalizeConfidenceImputesZeroEvidence(t *testing.T) {
	// a dimension carrying a mean but no evidence count still gets a
	// small non-zero confidence derived from review volume
	p := profileWithEvidence(150,
		map[HofstedeDimension]DimensionProfile{
			ProcessResults: {Value: 0.4, TotalEvidence: 0},
			OpenClosed:     {Value: 0.1, TotalEvidence: 100},
		},
		nil,
	)

	out := NormalizeConfidence(p)
	// 150/15 = 10 imputed evidence against a max of 100
	assert.InDelta(t, 10.0, out.Hofstede[ProcessResults].ConfidenceScore, 1e-9)
}

func TestNormalizeConfidenceNoEvidenceAnywhere(t *testing.T) {
	p := profileWithEvidence(40,
		map[HofstedeDimension]DimensionProfile{ProcessResults: {}},
		map[MITDimension]DimensionProfile{Agility: {}},
	)

	out := NormalizeConfidence(p)
	// max falls back to reviews x 5 = 200; imputed evidence 40/15 = 2
	assert.InDelta(t, 1.0, out.Hofstede[ProcessResults].ConfidenceScore, 1e-9)
	assert.InDelta(t, 1.0, out.MIT[Agility].ConfidenceScore, 1e-9)
}

func TestNormalizeConfidenceEmptyProfile(t *testing.T) {
	out := NormalizeConfidence(profileWithEvidence(0, nil, nil))
	assert.Empty(t, out.Hofstede)
	assert.Empty(t, out.MIT)
}

func TestRescaleMIT(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		max  float64
		want float64
	}{
		{"AtMax", 10, 10, 10},
		{"Half", 5, 10, 5},
		{"SmallMax", 1.5, 3, 5},
		{"ZeroMax", 4, 0, 0},
		{"NegativeMax", 4, -1, 0},
		{"Rounds", 1, 3, 3.33},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, RescaleMIT(tc.raw, tc.max), 1e-9)
		})
	}
}

type fakeMaxSource struct {
	vals  map[MITDimension]float64
	err   error
	calls int
}

func (f *fakeMaxSource) MITMaxAverages(context.Context) (map[MITDimension]float64, error) {
	f.calls++
	return f.vals, f.err
}

func TestMaxCacheCachesAndFloors(t *testing.T) {
	src := &fakeMaxSource{vals: map[MITDimension]float64{Agility: 8.0, Respect: 0}}
	c := NewMaxCache(src, time.Hour)
	ctx := context.Background()

	vals, err := c.Values(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, vals[Agility], 1e-9)
	// absent or zero maxima are floored
	assert.InDelta(t, 0.01, vals[Respect], 1e-9)
	assert.InDelta(t, 0.01, vals[Innovation], 1e-9)

	_, err = c.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestMaxCacheInvalidate(t *testing.T) {
	src := &fakeMaxSource{vals: map[MITDimension]float64{Agility: 4.0}}
	c := NewMaxCache(src, time.Hour)
	ctx := context.Background()

	_, err := c.Values(ctx)
	require.NoError(t, err)

	src.vals = map[MITDimension]float64{Agility: 6.0}
	c.Invalidate()

	vals, err := c.Values(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, vals[Agility], 1e-9)
	assert.Equal(t, 2, src.calls)
}

func TestMaxCacheSourceError(t *testing.T) {
	c := NewMaxCache(&fakeMaxSource{err: eris.New("db down")}, time.Hour)
	_, err := c.Values(context.Background())
	require.Error(t, err)
}

func TestNormalizerRescalesMIT(t *testing.T) {
	src := &fakeMaxSource{vals: map[MITDimension]float64{Agility: 5.0}}
	n := NewNormalizer(NewMaxCache(src, time.Hour))

	p := profileWithEvidence(10, nil, map[MITDimension]DimensionProfile{
		Agility: {Value: 2.5, TotalEvidence: 4},
	})

	out, err := n.Normalize(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, out.MIT[Agility].Value, 1e-9)
	// raw value in the input is preserved
	assert.InDelta(t, 2.5, p.MIT[Agility].Value, 1e-9)
}

func TestNormalizerFallsBackWhenMaximaUnavailable(t *testing.T) {
	src := &fakeMaxSource{err: eris.New("db down")}
	n := NewNormalizer(NewMaxCache(src, time.Hour))

	p := profileWithEvidence(10, nil, map[MITDimension]DimensionProfile{
		Agility: {Value: 0.5, TotalEvidence: 4},
	})

	// the all-ones fallback rescales raw 0.5 to 5.0 instead of erroring
	out, err := n.Normalize(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, out.MIT[Agility].Value, 1e-9)
}

func TestFallbackMaxValues(t *testing.T) {
	vals := FallbackMaxValues()
	assert.Len(t, vals, 9)
	for _, dim := range MITDimensions() {
		assert.InDelta(t, 1.0, vals[dim], 1e-9)
	}
}

func TestIndustryAverages(t *testing.T) {
	p1 := profileWithEvidence(1,
		map[HofstedeDimension]DimensionProfile{ProcessResults: {Value: 0.4}},
		map[MITDimension]DimensionProfile{Agility: {Value: 6}},
	)
	p2 := profileWithEvidence(1,
		map[HofstedeDimension]DimensionProfile{ProcessResults: {Value: -0.2}},
		map[MITDimension]DimensionProfile{Agility: {Value: 3}},
	)

	hof, mit := IndustryAverages([]*CompanyProfile{p1, p2})
	assert.InDelta(t, 0.1, hof[ProcessResults], 1e-9)
	assert.InDelta(t, 4.5, mit[Agility], 1e-9)
}

func TestIndustryAveragesEmpty(t *testing.T) {
	hof, mit := IndustryAverages(nil)
	assert.Empty(t, hof)
	assert.Empty(t, mit)
}
