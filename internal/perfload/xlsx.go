// Package perfload imports financial performance metrics from the asset
// manager workbook: one XLSX file with AUM, financials, business performance,
// and shareholder return sheets keyed by company name.
package perfload

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/acwi-research/culture-cli/internal/perf"
)

// Sheet names expected in the workbook.
const (
	sheetAUM         = "AUM Data"
	sheetFinancials  = "Financials & Profitability"
	sheetBusiness    = "Business Performance"
	sheetShareholder = "Shareholder Returns"
)

// companyNameMapping reconciles workbook company labels with the names used
// by the review corpus.
var companyNameMapping = map[string]string{
	"State Street (Corp)":       "State Street",
	"Morgan Stanley Inv. Mgmt.": "Morgan Stanley",
	"Legal & General Group":     "Legal & General",
}

// NormalizeCompany maps a workbook company label onto its canonical name.
func NormalizeCompany(name string) string {
	if mapped, ok := companyNameMapping[name]; ok {
		return mapped
	}
	return name
}

// sheet is one parsed worksheet: header-indexed rows keyed by company.
type sheet struct {
	headers map[string]int
	rows    map[string][]string
}

// Load reads the workbook and merges its sheets into one Metrics record per
// company. Rows without a company label, and the explanatory footer rows the
// workbook carries, are dropped. Missing cells stay nil.
func Load(path string) ([]perf.Metrics, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "perfload: open workbook")
	}

	business, err := parseSheet(f, sheetBusiness)
	if err != nil {
		return nil, err
	}
	financials, err := parseSheet(f, sheetFinancials)
	if err != nil {
		return nil, err
	}
	shareholder, err := parseSheet(f, sheetShareholder)
	if err != nil {
		return nil, err
	}
	// The AUM sheet is optional in older workbook revisions.
	aum, err := parseSheet(f, sheetAUM)
	if err != nil {
		zap.L().Warn("perfload: aum sheet missing, revenue growth limited", zap.Error(err))
		aum = &sheet{headers: map[string]int{}, rows: map[string][]string{}}
	}

	companies := make(map[string]bool)
	for c := range business.rows {
		companies[c] = true
	}
	for c := range financials.rows {
		companies[c] = true
	}
	for c := range shareholder.rows {
		companies[c] = true
	}

	var metrics []perf.Metrics
	for company := range companies {
		m := perf.Metrics{Company: company}
		m.ROE5yAvg = business.value(company, "5Y Avg ROE (%)")
		m.ROELatest = business.value(company, "2024 ROE (%)")
		m.RevenueGrowth5y = financials.value(company, "5Y Rev CAGR")
		m.OpMargin5yAvg = financials.value(company, "5Y Avg Op Margin")
		m.OpMarginLatest = financials.value(company, "2024 Op Margin")
		m.NetMarginLatest = financials.value(company, "2024 Net Margin")
		m.TSRCAGR5y = shareholder.value(company, "5Y TSR CAGR (%)")
		m.MarketCap = shareholder.value(company, "2024 Market Cap ($bn)")
		if m.RevenueGrowth5y == nil {
			m.RevenueGrowth5y = aum.value(company, "5Y CAGR")
		}
		metrics = append(metrics, m)
	}

	zap.L().Info("perfload: workbook loaded",
		zap.String("path", path),
		zap.Int("companies", len(metrics)),
	)
	return metrics, nil
}

func parseSheet(f *xlsx.File, name string) (*sheet, error) {
	ws, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("perfload: sheet %q not found", name)
	}
	if len(ws.Rows) == 0 {
		return nil, eris.Errorf("perfload: sheet %q is empty", name)
	}

	s := &sheet{
		headers: make(map[string]int),
		rows:    make(map[string][]string),
	}
	for i, cell := range ws.Rows[0].Cells {
		s.headers[strings.TrimSpace(cell.String())] = i
	}
	companyIdx, ok := s.headers["Company"]
	if !ok {
		return nil, eris.Errorf("perfload: sheet %q has no Company column", name)
	}

	for _, row := range ws.Rows[1:] {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		if companyIdx >= len(cells) || cells[companyIdx] == "" {
			continue
		}
		company := cells[companyIdx]
		if isFooterRow(company) {
			continue
		}
		s.rows[NormalizeCompany(company)] = cells
	}
	return s, nil
}

// isFooterRow drops the explanatory blocks the workbook appends below the
// data rows.
func isFooterRow(company string) bool {
	upper := strings.ToUpper(company)
	for _, marker := range []string{"EXPLAINED", "METRICS", "ROE", "REVENUE YIELD", "FEE-EARNING", "OPERATING MARGIN", "NET MARGIN"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// value parses the named cell for the company as a float, nil when absent or
// non-numeric.
func (s *sheet) value(company, header string) *float64 {
	idx, ok := s.headers[header]
	if !ok {
		return nil
	}
	cells, ok := s.rows[company]
	if !ok || idx >= len(cells) {
		return nil
	}
	raw := strings.TrimSuffix(strings.ReplaceAll(cells[idx], ",", ""), "%")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
