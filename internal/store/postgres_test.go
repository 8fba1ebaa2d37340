package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/model"
	"github.com/acwi-research/culture-cli/internal/perf"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresReviewCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reviews WHERE company = \$1`).
		WithArgs("Acme").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.ReviewCount(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompanies(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT company FROM reviews ORDER BY company`).
		WillReturnRows(pgxmock.NewRows([]string{"company"}).
			AddRow("Acme").
			AddRow("Globex"))

	companies, err := s.Companies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, companies)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReviewStats(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("WithReviews", func(t *testing.T) {
		avg := 3.6
		mock.ExpectQuery(`SELECT COUNT\(DISTINCT company\), COUNT\(\*\), AVG\(rating\) FROM reviews`).
			WillReturnRows(pgxmock.NewRows([]string{"companies", "reviews", "avg"}).
				AddRow(4, 120, &avg))

		stats, err := s.ReviewStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalCompanies)
		assert.Equal(t, 120, stats.TotalReviews)
		assert.InDelta(t, 3.6, stats.AverageRating, 1e-9)
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(DISTINCT company\), COUNT\(\*\), AVG\(rating\) FROM reviews`).
			WillReturnRows(pgxmock.NewRows([]string{"companies", "reviews", "avg"}).
				AddRow(0, 0, (*float64)(nil)))

		stats, err := s.ReviewStats(context.Background())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalReviews)
		assert.Zero(t, stats.AverageRating)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReviews(t *testing.T) {
	s, mock := newMockStore(t)

	posted := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rating := 4.0
	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE company = \$1`).
		WithArgs("Acme").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company", "summary", "pros", "cons", "posted_at", "rating",
			"work_life_balance", "culture_values", "career_opportunity", "compensation", "senior_management",
		}).AddRow(
			"r1", "Acme", "fine", "agile teams", "red tape", &posted, &rating,
			(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil),
		))

	got, err := s.Reviews(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, posted, got[0].PostedAt)
	require.NotNil(t, got[0].Rating)
	assert.InDelta(t, 4.0, *got[0].Rating, 1e-9)
	assert.Nil(t, got[0].CultureValues)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCachedProfile(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("Hit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT profile FROM company_profile_cache WHERE company = \$1`).
			WithArgs("Acme").
			WillReturnRows(pgxmock.NewRows([]string{"profile"}).
				AddRow([]byte(`{"company":"Acme","review_count":9}`)))

		p, err := s.CachedProfile(context.Background(), "Acme")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Acme", p.Company)
		assert.Equal(t, 9, p.ReviewCount)
	})

	t.Run("Miss", func(t *testing.T) {
		mock.ExpectQuery(`SELECT profile FROM company_profile_cache WHERE company = \$1`).
			WithArgs("Nowhere").
			WillReturnError(pgx.ErrNoRows)

		p, err := s.CachedProfile(context.Background(), "Nowhere")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheProfile(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO company_profile_cache`).
		WithArgs("Acme", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CacheProfile(context.Background(), &culture.CompanyProfile{Company: "Acme"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInvalidateProfiles(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM company_profile_cache`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, s.InvalidateProfiles(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPerformance(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("Found", func(t *testing.T) {
		roe := 18.5
		now := time.Now().UTC()
		mock.ExpectQuery(`SELECT .+ FROM performance_metrics WHERE company = \$1`).
			WithArgs("Acme").
			WillReturnRows(pgxmock.NewRows([]string{
				"company", "ticker", "sector", "roe_5y_avg", "revenue_growth_5y",
				"tsr_cagr_5y", "op_margin_5y_avg", "roe_latest", "op_margin_latest",
				"net_margin_latest", "market_cap", "updated_at",
			}).AddRow(
				"Acme", "ACME", "Asset Management", &roe, (*float64)(nil),
				(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil),
				(*float64)(nil), (*float64)(nil), now,
			))

		m, err := s.Performance(context.Background(), "Acme")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "ACME", m.Ticker)
		require.NotNil(t, m.ROE5yAvg)
		assert.InDelta(t, 18.5, *m.ROE5yAvg, 1e-9)
		assert.Nil(t, m.TSRCAGR5y)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM performance_metrics WHERE company = \$1`).
			WithArgs("Nowhere").
			WillReturnError(pgx.ErrNoRows)

		m, err := s.Performance(context.Background(), "Nowhere")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertPerformance(t *testing.T) {
	s, mock := newMockStore(t)

	roe := 18.5
	mock.ExpectExec(`INSERT INTO performance_metrics`).
		WithArgs("Acme", "ACME", "Asset Management", &roe, (*float64)(nil),
			(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil),
			(*float64)(nil), (*float64)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertPerformance(context.Background(), perf.Metrics{
		Company:  "Acme",
		Ticker:   "ACME",
		Sector:   "Asset Management",
		ROE5yAvg: &roe,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnqueueCompanies(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO extraction_queue`).
		WithArgs("Acme", "", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Globex already queued, conflict ignored
	mock.ExpectExec(`INSERT INTO extraction_queue`).
		WithArgs("Globex", "", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	n, err := s.EnqueueCompanies(context.Background(), []model.QueueItem{
		{Company: "Acme"},
		{Company: "Globex"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNextQueued(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("Pending", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(`SELECT company, sector, status, updated_at FROM extraction_queue`).
			WithArgs("pending").
			WillReturnRows(pgxmock.NewRows([]string{"company", "sector", "status", "updated_at"}).
				AddRow("Acme", "", model.QueuePending, now))

		item, err := s.NextQueued(context.Background())
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "Acme", item.Company)
		assert.Equal(t, model.QueuePending, item.Status)
	})

	t.Run("Drained", func(t *testing.T) {
		mock.ExpectQuery(`SELECT company, sector, status, updated_at FROM extraction_queue`).
			WithArgs("pending").
			WillReturnError(pgx.ErrNoRows)

		item, err := s.NextQueued(context.Background())
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateQueueStatus(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("Updates", func(t *testing.T) {
		mock.ExpectExec(`UPDATE extraction_queue SET status = \$1`).
			WithArgs("completed", pgxmock.AnyArg(), "Acme").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.UpdateQueueStatus(context.Background(), "Acme", model.QueueCompleted))
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE extraction_queue SET status = \$1`).
			WithArgs("completed", pgxmock.AnyArg(), "Nowhere").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.UpdateQueueStatus(context.Background(), "Nowhere", model.QueueCompleted)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM extraction_queue GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("completed", 5))

	counts, err := s.QueueCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.QueuePending])
	assert.Equal(t, 5, counts[model.QueueCompleted])
	require.NoError(t, mock.ExpectationsWereMet())
}
