package culture

// DimensionDiff is one dimension's side-by-side comparison of two companies.
type DimensionDiff struct {
	Company1   float64 `json:"company1"`
	Company2   float64 `json:"company2"`
	Difference float64 `json:"difference"`
}

// Comparison holds the per-dimension differences between two profiles
// (company2 − company1).
type Comparison struct {
	Hofstede map[HofstedeDimension]DimensionDiff `json:"hofstede_comparison"`
	MIT      map[MITDimension]DimensionDiff      `json:"mit_comparison"`
}

// Compare diffs two profiles dimension by dimension.
func Compare(p1, p2 *CompanyProfile) *Comparison {
	cmp := &Comparison{
		Hofstede: make(map[HofstedeDimension]DimensionDiff, 6),
		MIT:      make(map[MITDimension]DimensionDiff, 9),
	}
	for _, dim := range HofstedeDimensions() {
		v1 := p1.Hofstede[dim].Value
		v2 := p2.Hofstede[dim].Value
		cmp.Hofstede[dim] = DimensionDiff{Company1: v1, Company2: v2, Difference: v2 - v1}
	}
	for _, dim := range MITDimensions() {
		v1 := p1.MIT[dim].Value
		v2 := p2.MIT[dim].Value
		cmp.MIT[dim] = DimensionDiff{Company1: v1, Company2: v2, Difference: v2 - v1}
	}
	return cmp
}

// Benchmark holds a company's standing against its peers for one framework.
type Benchmark struct {
	Company         map[string]float64 `json:"company"`
	IndustryAverage map[string]float64 `json:"industry_average"`
	Percentile      map[string]float64 `json:"percentile"`
}

// BenchmarkProfile ranks the company's dimension values against peer
// profiles: the percentile is the share of peers at or below the company's
// value.
func BenchmarkProfile(company *CompanyProfile, peers []*CompanyProfile) (hofstede, mit Benchmark) {
	hofstede = Benchmark{
		Company:         make(map[string]float64, 6),
		IndustryAverage: make(map[string]float64, 6),
		Percentile:      make(map[string]float64, 6),
	}
	mit = Benchmark{
		Company:         make(map[string]float64, 9),
		IndustryAverage: make(map[string]float64, 9),
		Percentile:      make(map[string]float64, 9),
	}

	hAvg, mAvg := IndustryAverages(peers)

	for _, dim := range HofstedeDimensions() {
		v := company.Hofstede[dim].Value
		hofstede.Company[string(dim)] = v
		hofstede.IndustryAverage[string(dim)] = hAvg[dim]
		hofstede.Percentile[string(dim)] = percentile(v, peerValuesHofstede(peers, dim))
	}
	for _, dim := range MITDimensions() {
		v := company.MIT[dim].Value
		mit.Company[string(dim)] = v
		mit.IndustryAverage[string(dim)] = mAvg[dim]
		mit.Percentile[string(dim)] = percentile(v, peerValuesMIT(peers, dim))
	}
	return hofstede, mit
}

func peerValuesHofstede(peers []*CompanyProfile, dim HofstedeDimension) []float64 {
	vals := make([]float64, 0, len(peers))
	for _, p := range peers {
		vals = append(vals, p.Hofstede[dim].Value)
	}
	return vals
}

func peerValuesMIT(peers []*CompanyProfile, dim MITDimension) []float64 {
	vals := make([]float64, 0, len(peers))
	for _, p := range peers {
		vals = append(vals, p.MIT[dim].Value)
	}
	return vals
}

func percentile(v float64, peers []float64) float64 {
	if len(peers) == 0 {
		return 0
	}
	atOrBelow := 0
	for _, pv := range peers {
		if pv <= v {
			atOrBelow++
		}
	}
	return round1(float64(atOrBelow) / float64(len(peers)) * 100)
}
