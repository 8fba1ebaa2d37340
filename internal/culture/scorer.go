package culture

import (
	"strings"
)

// mitScoreCap bounds a mapped MIT dimension score; the evidence count itself
// is not capped.
const mitScoreCap = 10.0

// BipolarScore is the per-review result for one Hofstede dimension.
// Score is nil when the dimension was never discussed (zero evidence).
type BipolarScore struct {
	Score    *float64 `json:"score"`
	Evidence int      `json:"evidence"`
}

// UnipolarScore is the per-review result for one MIT dimension.
type UnipolarScore struct {
	Score    float64 `json:"score"`
	Evidence int     `json:"evidence"`
}

// ReviewScores holds a single review's scores across both frameworks.
type ReviewScores struct {
	Hofstede map[HofstedeDimension]BipolarScore `json:"hofstede"`
	MIT      map[MITDimension]UnipolarScore     `json:"mit_big_9"`
}

// Scorer converts free-text review content into dimension scores using a
// fixed lexicon. It is a pure function over (lexicon, text) with no shared
// state, safe for concurrent use.
type Scorer struct {
	lex *Lexicon
}

// NewScorer creates a Scorer. A nil lexicon falls back to the built-in one.
func NewScorer(lex *Lexicon) *Scorer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Scorer{lex: lex}
}

// Score scores one review's text against every dimension. It returns nil for
// empty or whitespace-only input rather than an error.
//
// Matching counts distinct keyword phrases present as substrings of the
// lower-cased text; repeating a phrase in the review does not raise its
// count. For a Hofstede dimension the score is
// (poleB − poleA) / (poleA + poleB), nil when neither pole matched. For an
// MIT dimension the score is min(10, hits × 2).
func (s *Scorer) Score(text string) *ReviewScores {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	result := &ReviewScores{
		Hofstede: make(map[HofstedeDimension]BipolarScore, len(s.lex.Hofstede)),
		MIT:      make(map[MITDimension]UnipolarScore, len(s.lex.MIT)),
	}

	for _, dim := range HofstedeDimensions() {
		kw := s.lex.Hofstede[dim]
		a := countMatches(lower, kw.PoleA)
		b := countMatches(lower, kw.PoleB)

		score := BipolarScore{Evidence: a + b}
		if a+b > 0 {
			v := float64(b-a) / float64(a+b)
			score.Score = &v
		}
		result.Hofstede[dim] = score
	}

	for _, dim := range MITDimensions() {
		hits := countMatches(lower, s.lex.MIT[dim])
		score := float64(hits) * 2
		if score > mitScoreCap {
			score = mitScoreCap
		}
		result.MIT[dim] = UnipolarScore{Score: score, Evidence: hits}
	}

	return result
}

// countMatches returns the number of distinct keyword phrases contained in
// the (already lower-cased) text.
func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
