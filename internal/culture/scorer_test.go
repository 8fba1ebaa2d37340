package culture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreEmptyText(t *testing.T) {
	s := NewScorer(nil)
	assert.Nil(t, s.Score(""))
	assert.Nil(t, s.Score("   \n\t"))
}

func TestScoreNoMatches(t *testing.T) {
	s := NewScorer(nil)
	scores := s.Score("the quarterly report was filed on time")
	require.NotNil(t, scores)

	for _, dim := range HofstedeDimensions() {
		bs := scores.Hofstede[dim]
		assert.Nil(t, bs.Score, "dimension %s", dim)
		assert.Zero(t, bs.Evidence, "dimension %s", dim)
	}
	for _, dim := range MITDimensions() {
		us := scores.MIT[dim]
		assert.Zero(t, us.Score, "dimension %s", dim)
		assert.Zero(t, us.Evidence, "dimension %s", dim)
	}
}

func TestScoreDistinctPhrasesOnly(t *testing.T) {
	s := NewScorer(nil)
	// repeating a phrase does not raise its count
	scores := s.Score("Very agile, very agile, collaborative teamwork")
	require.NotNil(t, scores)

	ag := scores.MIT[Agility]
	assert.Equal(t, 1, ag.Evidence)
	assert.InDelta(t, 2.0, ag.Score, 1e-9)

	co := scores.MIT[Collaboration]
	assert.Equal(t, 2, co.Evidence)
	assert.InDelta(t, 4.0, co.Score, 1e-9)
}

func TestScoreBipolar(t *testing.T) {
	s := NewScorer(nil)

	t.Run("AllPoleA", func(t *testing.T) {
		scores := s.Score("Bureaucratic culture with endless red tape")
		pr := scores.Hofstede[ProcessResults]
		require.NotNil(t, pr.Score)
		assert.InDelta(t, -1.0, *pr.Score, 1e-9)
		assert.Equal(t, 2, pr.Evidence)
	})

	t.Run("AllPoleB", func(t *testing.T) {
		scores := s.Score("Results-driven teams with a bias for action")
		pr := scores.Hofstede[ProcessResults]
		require.NotNil(t, pr.Score)
		assert.InDelta(t, 1.0, *pr.Score, 1e-9)
		assert.Equal(t, 2, pr.Evidence)
	})

	t.Run("Mixed", func(t *testing.T) {
		scores := s.Score("bureaucratic but results-driven")
		pr := scores.Hofstede[ProcessResults]
		require.NotNil(t, pr.Score)
		assert.InDelta(t, 0.0, *pr.Score, 1e-9)
		assert.Equal(t, 2, pr.Evidence)
	})
}

func TestScoreMITCap(t *testing.T) {
	s := NewScorer(nil)
	scores := s.Score("agile nimble fast paced responsive rapid change move quickly")

	ag := scores.MIT[Agility]
	// six distinct phrases would map to 12, capped at 10
	assert.Equal(t, 6, ag.Evidence)
	assert.InDelta(t, 10.0, ag.Score, 1e-9)
}

func TestScoreCaseInsensitive(t *testing.T) {
	s := NewScorer(nil)
	scores := s.Score("INNOVATIVE and Cutting Edge work")
	in := scores.MIT[Innovation]
	assert.Equal(t, 2, in.Evidence)
	assert.InDelta(t, 4.0, in.Score, 1e-9)
}

func TestScoreSubstringContainment(t *testing.T) {
	s := NewScorer(nil)
	// "agile" inside "fragile" is an accepted lexicon false positive
	scores := s.Score("the codebase felt fragile")
	assert.Equal(t, 1, scores.MIT[Agility].Evidence)
}

func TestRowFromScores(t *testing.T) {
	s := NewScorer(nil)
	scores := s.Score("bureaucratic red tape and collaborative people")
	row := RowFromScores("r1", "Acme", scores)

	assert.Equal(t, "r1", row.ReviewID)
	assert.Equal(t, "Acme", row.Company)
	require.NotNil(t, row.Hofstede[ProcessResults])
	assert.InDelta(t, -1.0, *row.Hofstede[ProcessResults], 1e-9)
	assert.Nil(t, row.Hofstede[TightLoose])
	assert.InDelta(t, 2.0, row.MIT[Collaboration], 1e-9)
	assert.Zero(t, row.MIT[Respect])
}
