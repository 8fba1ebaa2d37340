package culture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// evidencePerReviewEstimate approximates total evidence from review
	// count when a profile carries no evidence at all. Calibrated against
	// the historical corpus, not derived.
	evidencePerReviewEstimate = 5

	// imputedEvidenceDivisor backs the evidence estimate for a dimension
	// that has a mean but a zero evidence count. Upstream aggregation can
	// lose evidence counts for such dimensions; the imputation keeps their
	// displayed confidence non-zero. See DESIGN.md.
	imputedEvidenceDivisor = 15

	// industryMaxFloor keeps MIT rescaling denominators away from zero.
	industryMaxFloor = 0.01
)

// NormalizeConfidence returns a copy of the profile with per-dimension
// relative confidence scores filled in: the best-evidenced dimension of the
// company (across both frameworks) scores 100, the rest proportionally.
func NormalizeConfidence(p *CompanyProfile) *CompanyProfile {
	out := cloneProfile(p)

	maxEvidence := 0
	for _, dp := range out.Hofstede {
		if dp.TotalEvidence > maxEvidence {
			maxEvidence = dp.TotalEvidence
		}
	}
	for _, dp := range out.MIT {
		if dp.TotalEvidence > maxEvidence {
			maxEvidence = dp.TotalEvidence
		}
	}

	if maxEvidence == 0 {
		if out.ReviewCount == 0 {
			return out
		}
		maxEvidence = out.ReviewCount * evidencePerReviewEstimate
	}

	for dim, dp := range out.Hofstede {
		dp.ConfidenceScore = relativeConfidence(dp.TotalEvidence, maxEvidence, out.ReviewCount)
		out.Hofstede[dim] = dp
	}
	for dim, dp := range out.MIT {
		dp.ConfidenceScore = relativeConfidence(dp.TotalEvidence, maxEvidence, out.ReviewCount)
		out.MIT[dim] = dp
	}
	return out
}

func relativeConfidence(evidence, maxEvidence, reviewCount int) float64 {
	if evidence == 0 {
		evidence = reviewCount / imputedEvidenceDivisor
		if evidence < 1 {
			evidence = 1
		}
	}
	if maxEvidence <= 0 {
		return 0
	}
	return round1(float64(evidence) / float64(maxEvidence) * 100)
}

// MITMaxSource supplies, per MIT dimension, the maximum across companies of
// the per-company average raw score.
type MITMaxSource interface {
	MITMaxAverages(ctx context.Context) (map[MITDimension]float64, error)
}

// MaxCache memoizes the industry MIT maxima used for rescaling. Entries are
// recomputed after the TTL elapses or on explicit invalidation; within the
// TTL, stale values are served by design (request latency over freshness).
// Writers are idempotent: every recompute derives the same values from the
// current data snapshot, so last-write-wins is safe.
type MaxCache struct {
	src MITMaxSource
	ttl time.Duration

	mu        sync.RWMutex
	vals      map[MITDimension]float64
	fetchedAt time.Time
}

// NewMaxCache creates a MaxCache over src. A non-positive ttl means entries
// never expire on their own and only Invalidate refreshes them.
func NewMaxCache(src MITMaxSource, ttl time.Duration) *MaxCache {
	return &MaxCache{src: src, ttl: ttl}
}

// Values returns the per-dimension industry maxima, fetching from the source
// on the first call or after expiry. Every value is floored at 0.01.
func (c *MaxCache) Values(ctx context.Context) (map[MITDimension]float64, error) {
	c.mu.RLock()
	if c.vals != nil && !c.expired() {
		vals := c.vals
		c.mu.RUnlock()
		return vals, nil
	}
	c.mu.RUnlock()

	raw, err := c.src.MITMaxAverages(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "culture: fetch mit max averages")
	}

	vals := make(map[MITDimension]float64, len(MITDimensions()))
	for _, dim := range MITDimensions() {
		vals[dim] = math.Max(raw[dim], industryMaxFloor)
	}

	c.mu.Lock()
	c.vals = vals
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return vals, nil
}

// Invalidate drops the cached maxima so the next Values call refetches.
// Call it whenever underlying review scores change.
func (c *MaxCache) Invalidate() {
	c.mu.Lock()
	c.vals = nil
	c.mu.Unlock()
}

func (c *MaxCache) expired() bool {
	return c.ttl > 0 && time.Since(c.fetchedAt) > c.ttl
}

// FallbackMaxValues is the degenerate all-ones maxima used when the source
// is unavailable and a best-effort response is preferred over failure.
func FallbackMaxValues() map[MITDimension]float64 {
	vals := make(map[MITDimension]float64, len(MITDimensions()))
	for _, dim := range MITDimensions() {
		vals[dim] = 1
	}
	return vals
}

// RescaleMIT maps a raw MIT dimension value onto the 0-10 display scale:
// 10 × raw / industryMax, rounded to two decimals. A non-positive maximum
// yields 0.
func RescaleMIT(raw, industryMax float64) float64 {
	if industryMax <= 0 {
		return 0
	}
	return round2(10 * raw / industryMax)
}

// Normalizer applies both normalization passes to aggregated profiles.
type Normalizer struct {
	cache *MaxCache
}

// NewNormalizer creates a Normalizer over the given maxima cache.
func NewNormalizer(cache *MaxCache) *Normalizer {
	return &Normalizer{cache: cache}
}

// Normalize returns a copy of the profile with relative confidence scores
// computed and MIT values rescaled to 0-10 against the industry maxima.
// When the maxima source is unavailable the all-ones fallback keeps the
// response best-effort instead of failing.
func (n *Normalizer) Normalize(ctx context.Context, p *CompanyProfile) (*CompanyProfile, error) {
	maxVals, err := n.cache.Values(ctx)
	if err != nil {
		zap.L().Warn("culture: industry maxima unavailable, using fallback",
			zap.Error(err),
		)
		maxVals = FallbackMaxValues()
	}

	out := NormalizeConfidence(p)
	for dim, dp := range out.MIT {
		dp.Value = RescaleMIT(dp.Value, maxVals[dim])
		out.MIT[dim] = dp
	}
	return out, nil
}

// Invalidate drops the cached industry maxima.
func (n *Normalizer) Invalidate() {
	n.cache.Invalidate()
}

// IndustryAverages computes the simple mean of every dimension's value over
// the given (normalized) profiles.
func IndustryAverages(profiles []*CompanyProfile) (map[HofstedeDimension]float64, map[MITDimension]float64) {
	hofstede := make(map[HofstedeDimension]float64, 6)
	mit := make(map[MITDimension]float64, 9)
	if len(profiles) == 0 {
		return hofstede, mit
	}

	n := float64(len(profiles))
	for _, p := range profiles {
		for dim, dp := range p.Hofstede {
			hofstede[dim] += dp.Value
		}
		for dim, dp := range p.MIT {
			mit[dim] += dp.Value
		}
	}
	for dim := range hofstede {
		hofstede[dim] = round3(hofstede[dim] / n)
	}
	for dim := range mit {
		mit[dim] = round2(mit[dim] / n)
	}
	return hofstede, mit
}

func cloneProfile(p *CompanyProfile) *CompanyProfile {
	out := *p
	out.Hofstede = make(map[HofstedeDimension]DimensionProfile, len(p.Hofstede))
	for dim, dp := range p.Hofstede {
		out.Hofstede[dim] = dp
	}
	out.MIT = make(map[MITDimension]DimensionProfile, len(p.MIT))
	for dim, dp := range p.MIT {
		out.MIT[dim] = dp
	}
	return &out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
