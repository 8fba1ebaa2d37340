package culture

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/acwi-research/culture-cli/internal/model"
)

// Source supplies a company's reviews and, when available, pre-computed
// per-review dimension aggregates.
type Source interface {
	// Reviews returns all reviews for the company, any order.
	Reviews(ctx context.Context, company string) ([]model.Review, error)
	// CultureAggregates returns the SQL aggregate over stored score rows.
	// ScoredReviews == 0 signals that no rows have been scored yet.
	CultureAggregates(ctx context.Context, company string) (*Aggregates, error)
}

// Aggregator builds company-level culture profiles from review-level scores.
type Aggregator struct {
	src    Source
	scorer *Scorer
}

// NewAggregator creates an Aggregator. A nil scorer falls back to the
// default lexicon.
func NewAggregator(src Source, scorer *Scorer) *Aggregator {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	return &Aggregator{src: src, scorer: scorer}
}

// Aggregate computes the company's culture profile. The preferred path reads
// pre-scored rows via the store aggregate; when none exist yet, every review
// is scored on demand and the same aggregate is built in memory. Both paths
// produce identical structure.
//
// A company with no reviews at all yields (nil, nil): missing data is the
// caller's decision, not an error. A company whose reviews never hit any
// dimension yields an all-zero Low-confidence profile.
func (a *Aggregator) Aggregate(ctx context.Context, company string) (*CompanyProfile, error) {
	reviews, err := a.src.Reviews(ctx, company)
	if err != nil {
		return nil, eris.Wrapf(err, "culture: load reviews for %s", company)
	}
	if len(reviews) == 0 {
		return nil, nil
	}

	aggs, err := a.src.CultureAggregates(ctx, company)
	if err != nil {
		return nil, eris.Wrapf(err, "culture: load aggregates for %s", company)
	}
	if aggs == nil || aggs.ScoredReviews == 0 {
		zap.L().Debug("culture: no stored scores, scoring on demand",
			zap.String("company", company),
			zap.Int("reviews", len(reviews)),
		)
		aggs = a.scoreInMemory(reviews)
	}

	profile := &CompanyProfile{
		Company:       company,
		ReviewCount:   len(reviews),
		ScoredReviews: aggs.ScoredReviews,
		OverallRating: meanRating(reviews),
		Hofstede:      make(map[HofstedeDimension]DimensionProfile, 6),
		MIT:           make(map[MITDimension]DimensionProfile, 9),
		UpdatedAt:     time.Now().UTC(),
	}

	for _, dim := range HofstedeDimensions() {
		agg := aggs.Hofstede[dim]
		profile.Hofstede[dim] = dimensionProfile(round2(agg.Mean), agg.Count)
	}
	for _, dim := range MITDimensions() {
		agg := aggs.MIT[dim]
		// MIT values stay raw here; cross-company rescaling to 0-10
		// happens in the normalizer.
		profile.MIT[dim] = dimensionProfile(round4(agg.Mean), agg.Count)
	}

	return profile, nil
}

func dimensionProfile(value float64, count int) DimensionProfile {
	if count == 0 {
		return DimensionProfile{ConfidenceLevel: ConfidenceLow}
	}
	return DimensionProfile{
		Value:           value,
		TotalEvidence:   count,
		ConfidenceLevel: LevelForEvidence(count),
	}
}

// scoreInMemory is the fallback path: score every review and fold the
// results into the same aggregate shape the store query produces. Reviews
// with no scoreable text are skipped individually.
func (a *Aggregator) scoreInMemory(reviews []model.Review) *Aggregates {
	type sums struct {
		sum   float64
		count int
	}
	hSums := make(map[HofstedeDimension]*sums, 6)
	mSums := make(map[MITDimension]*sums, 9)
	for _, dim := range HofstedeDimensions() {
		hSums[dim] = &sums{}
	}
	for _, dim := range MITDimensions() {
		mSums[dim] = &sums{}
	}

	scored := 0
	for _, r := range reviews {
		scores := a.scorer.Score(r.Text())
		if scores == nil {
			continue
		}
		scored++
		for dim, s := range scores.Hofstede {
			if s.Score == nil {
				continue
			}
			hSums[dim].sum += *s.Score
			hSums[dim].count++
		}
		for dim, s := range scores.MIT {
			// Mirror the stored-score aggregate: every scored review enters
			// the MIT mean, but only positive scores count as evidence.
			mSums[dim].sum += s.Score
			if s.Score > 0 {
				mSums[dim].count++
			}
		}
	}

	aggs := &Aggregates{
		ScoredReviews: scored,
		Hofstede:      make(map[HofstedeDimension]DimensionAggregate, 6),
		MIT:           make(map[MITDimension]DimensionAggregate, 9),
	}
	for dim, s := range hSums {
		if s.count > 0 {
			aggs.Hofstede[dim] = DimensionAggregate{Mean: s.sum / float64(s.count), Count: s.count}
		}
	}
	for dim, s := range mSums {
		if s.count > 0 {
			aggs.MIT[dim] = DimensionAggregate{Mean: s.sum / float64(scored), Count: s.count}
		}
	}
	return aggs
}

func meanRating(reviews []model.Review) float64 {
	var sum float64
	var n int
	for _, r := range reviews {
		if r.Rating != nil {
			sum += *r.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}
