package culture

import (
	"time"
)

// Evidence thresholds for confidence tiering, applied per dimension and to
// whole profiles.
const (
	HighConfidenceEvidence   = 50
	MediumConfidenceEvidence = 20
)

// ConfidenceLevel buckets an evidence total or confidence score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// LevelForEvidence maps an evidence total onto a confidence tier.
func LevelForEvidence(evidence int) ConfidenceLevel {
	switch {
	case evidence >= HighConfidenceEvidence:
		return ConfidenceHigh
	case evidence >= MediumConfidenceEvidence:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DimensionProfile is one dimension of a company's aggregated culture
// profile. Value is the mean of per-review scores (raw, unscaled for MIT).
// ConfidenceScore is filled in by the normalizer; it is relative to the
// company's best-evidenced dimension, 0-100.
type DimensionProfile struct {
	Value           float64         `json:"value"`
	TotalEvidence   int             `json:"total_evidence"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
}

// CompanyProfile is a company's aggregated culture profile across both
// frameworks. A company whose reviews never hit a dimension still carries an
// all-zero Low entry for it; profiles are never sparse.
type CompanyProfile struct {
	Company       string                                 `json:"company"`
	ReviewCount   int                                    `json:"review_count"`
	ScoredReviews int                                    `json:"scored_reviews"`
	OverallRating float64                                `json:"overall_rating"`
	Hofstede      map[HofstedeDimension]DimensionProfile `json:"hofstede"`
	MIT           map[MITDimension]DimensionProfile      `json:"mit_big_9"`
	UpdatedAt     time.Time                              `json:"updated_at"`
}

// OverallConfidence reports the profile-level confidence score (0-100,
// proportional to review count against the high-confidence threshold) and
// its tier.
func (p *CompanyProfile) OverallConfidence() (float64, ConfidenceLevel) {
	score := float64(p.ReviewCount) / float64(HighConfidenceEvidence) * 100
	if score > 100 {
		score = 100
	}
	return round1(score), LevelForEvidence(p.ReviewCount)
}

// ScoreRow is one review's persisted dimension scores. Hofstede entries are
// nil when the review never discussed the dimension.
type ScoreRow struct {
	ReviewID string
	Company  string
	Hofstede map[HofstedeDimension]*float64
	MIT      map[MITDimension]float64
}

// RowFromScores flattens a scorer result into a persistable row.
func RowFromScores(reviewID, company string, scores *ReviewScores) ScoreRow {
	row := ScoreRow{
		ReviewID: reviewID,
		Company:  company,
		Hofstede: make(map[HofstedeDimension]*float64, len(scores.Hofstede)),
		MIT:      make(map[MITDimension]float64, len(scores.MIT)),
	}
	for dim, s := range scores.Hofstede {
		row.Hofstede[dim] = s.Score
	}
	for dim, s := range scores.MIT {
		row.MIT[dim] = s.Score
	}
	return row
}

// DimensionAggregate is the SQL-style aggregate of one dimension over all of
// a company's scored reviews: mean of non-null scores and the count of rows
// contributing to it.
type DimensionAggregate struct {
	Mean  float64
	Count int
}

// Aggregates holds a company's per-dimension aggregates as read from the
// score store (or rebuilt in memory on the fallback path).
type Aggregates struct {
	ScoredReviews int
	Hofstede      map[HofstedeDimension]DimensionAggregate
	MIT           map[MITDimension]DimensionAggregate
}
