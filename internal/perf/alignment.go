package perf

import (
	"math"

	"github.com/acwi-research/culture-cli/internal/culture"
)

// hofstedeScaleFactor matches the Hofstede framework score (built from
// values in roughly [-1,1]) to the MIT score (values in [0,10]) when the two
// are combined. Calibration constant, not a derivation.
const hofstedeScaleFactor = 5.0

// Alignment confidence buckets.
const (
	alignmentHighConfidence   = 50.0
	alignmentMediumConfidence = 25.0
)

// FrameworkAlignment is one framework's correlation-weighted alignment.
type FrameworkAlignment struct {
	Score           float64 `json:"score"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
}

// AlignmentScore is a company's culture alignment with performance-linked
// culture traits: how far its profile deviates from the industry average, in
// the directions that correlate with performance.
type AlignmentScore struct {
	Company  string             `json:"company"`
	Hofstede FrameworkAlignment `json:"hofstede"`
	MIT      FrameworkAlignment `json:"mit"`

	CombinedScore      float64 `json:"combined_score"`
	CombinedConfidence float64 `json:"combined_confidence"`
	ConfidenceLevel    string  `json:"confidence_level"`
}

// ScoreAlignment computes the company's alignment against the industry
// averages, weighting each dimension's deviation by its correlation with the
// reference metric. The per-framework score is an unweighted sum over
// dimensions, so its magnitude grows with dimension count. Dimensions with
// no correlation entry for the metric contribute nothing.
//
// The profile must be normalized and the industry averages computed over the
// same normalized population.
func ScoreAlignment(
	profile *culture.CompanyProfile,
	hofstedeAvg map[culture.HofstedeDimension]float64,
	mitAvg map[culture.MITDimension]float64,
	analysis *Analysis,
	metric Metric,
) *AlignmentScore {
	var hScore, hConfWeighted, hWeight float64
	for _, dim := range culture.HofstedeDimensions() {
		res, ok := analysis.Hofstede[dim][metric]
		if !ok {
			continue
		}
		dp := profile.Hofstede[dim]
		deviation := dp.Value - hofstedeAvg[dim]
		hScore += res.Correlation * deviation

		w := math.Abs(res.Correlation)
		hConfWeighted += w * dp.ConfidenceScore
		hWeight += w
	}

	var mScore, mConfWeighted, mWeight float64
	for _, dim := range culture.MITDimensions() {
		res, ok := analysis.MIT[dim][metric]
		if !ok {
			continue
		}
		dp := profile.MIT[dim]
		deviation := dp.Value - mitAvg[dim]
		mScore += res.Correlation * deviation

		w := math.Abs(res.Correlation)
		mConfWeighted += w * dp.ConfidenceScore
		mWeight += w
	}

	hConf := weightedConfidence(hConfWeighted, hWeight)
	mConf := weightedConfidence(mConfWeighted, mWeight)

	combined := hScore*hofstedeScaleFactor + mScore
	combinedConf := weightedConfidence(hConfWeighted+mConfWeighted, hWeight+mWeight)

	return &AlignmentScore{
		Company: profile.Company,
		Hofstede: FrameworkAlignment{
			Score:           round2(hScore),
			Confidence:      round1(hConf),
			ConfidenceLevel: alignmentLevel(hConf),
		},
		MIT: FrameworkAlignment{
			Score:           round2(mScore),
			Confidence:      round1(mConf),
			ConfidenceLevel: alignmentLevel(mConf),
		},
		CombinedScore:      round2(combined),
		CombinedConfidence: round1(combinedConf),
		ConfidenceLevel:    alignmentLevel(combinedConf),
	}
}

func weightedConfidence(weightedSum, weight float64) float64 {
	if weight == 0 {
		return 0
	}
	return weightedSum / weight
}

func alignmentLevel(conf float64) string {
	switch {
	case conf >= alignmentHighConfidence:
		return string(culture.ConfidenceHigh)
	case conf >= alignmentMediumConfidence:
		return string(culture.ConfidenceMedium)
	default:
		return string(culture.ConfidenceLow)
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
