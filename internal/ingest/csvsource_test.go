package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCSVSource(t *testing.T) {
	path := writeCSV(t, `company,summary,pros,cons,posted_at,rating,work_life_balance
Acme,Good place,agile teams,some red tape,2024-03-15,4.5,3.0
Acme,Okay,collaborative,slow decisions,2023-11-02,3.0,
Globex,Meh,innovative,cliquey,,2.5,2.0
,orphan row,,,,,
`)

	src, err := NewCSVSource(path)
	require.NoError(t, err)

	companies := src.Companies()
	assert.ElementsMatch(t, []string{"Acme", "Globex"}, companies)

	reviews, err := src.FetchReviews(context.Background(), "Acme", "")
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	r := reviews[0]
	assert.Equal(t, "Good place", r.Summary)
	assert.Equal(t, "agile teams", r.Pros)
	assert.Equal(t, "some red tape", r.Cons)
	assert.Equal(t, 2024, r.PostedAt.Year())
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 4.5, *r.Rating, 1e-9)
	require.NotNil(t, r.WorkLifeBalance)
	assert.InDelta(t, 3.0, *r.WorkLifeBalance, 1e-9)

	// blank numeric cells stay nil
	assert.Nil(t, reviews[1].WorkLifeBalance)
	// blank posted_at stays zero
	globex, err := src.FetchReviews(context.Background(), "Globex", "")
	require.NoError(t, err)
	require.Len(t, globex, 1)
	assert.True(t, globex[0].PostedAt.IsZero())
}

func TestNewCSVSourceColumnSubset(t *testing.T) {
	path := writeCSV(t, "company,pros\nAcme,supportive team\n")

	src, err := NewCSVSource(path)
	require.NoError(t, err)

	reviews, err := src.FetchReviews(context.Background(), "Acme", "")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "supportive team", reviews[0].Pros)
	assert.Nil(t, reviews[0].Rating)
}

func TestNewCSVSourceNoCompanyColumn(t *testing.T) {
	path := writeCSV(t, "summary,pros\nGood,agile\n")
	_, err := NewCSVSource(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company column")
}

func TestNewCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestFetchReviewsUnknownCompany(t *testing.T) {
	path := writeCSV(t, "company,pros\nAcme,nice\n")
	src, err := NewCSVSource(path)
	require.NoError(t, err)

	reviews, err := src.FetchReviews(context.Background(), "Nowhere", "")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
