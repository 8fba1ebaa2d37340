package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/acwi-research/culture-cli/internal/model"
)

// CSVSource serves reviews from a local CSV export, keyed by company. Used
// for offline ingestion runs and as the test double for the live source.
type CSVSource struct {
	byCompany map[string][]model.Review
}

// NewCSVSource loads the review CSV at path. Expected header: company,
// summary, pros, cons, posted_at, rating, work_life_balance, culture_values,
// career_opportunity, compensation, senior_management. Column order is taken
// from the header; missing optional columns are tolerated.
func NewCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open review csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["company"]; !ok {
		return nil, eris.New("ingest: review csv has no company column")
	}

	src := &CSVSource{byCompany: make(map[string][]model.Review)}
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}

		company := field(record, idx, "company")
		if company == "" {
			continue
		}
		r := model.Review{
			Company:           company,
			Summary:           field(record, idx, "summary"),
			Pros:              field(record, idx, "pros"),
			Cons:              field(record, idx, "cons"),
			Rating:            floatField(record, idx, "rating"),
			WorkLifeBalance:   floatField(record, idx, "work_life_balance"),
			CultureValues:     floatField(record, idx, "culture_values"),
			CareerOpportunity: floatField(record, idx, "career_opportunity"),
			Compensation:      floatField(record, idx, "compensation"),
			SeniorManagement:  floatField(record, idx, "senior_management"),
		}
		if raw := field(record, idx, "posted_at"); raw != "" {
			if t, err := time.Parse("2006-01-02", raw); err == nil {
				r.PostedAt = t
			}
		}
		src.byCompany[company] = append(src.byCompany[company], r)
		rows++
	}

	zap.L().Info("ingest: review csv loaded",
		zap.String("path", path),
		zap.Int("reviews", rows),
		zap.Int("companies", len(src.byCompany)),
	)
	return src, nil
}

// Companies lists every company present in the CSV.
func (s *CSVSource) Companies() []string {
	companies := make([]string, 0, len(s.byCompany))
	for c := range s.byCompany {
		companies = append(companies, c)
	}
	return companies
}

// FetchReviews returns the company's reviews. An unknown company yields an
// empty slice, not an error; the queue marks it completed with zero reviews.
func (s *CSVSource) FetchReviews(ctx context.Context, company, sector string) ([]model.Review, error) {
	return s.byCompany[company], nil
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func floatField(record []string, idx map[string]int, name string) *float64 {
	raw := field(record, idx, name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
