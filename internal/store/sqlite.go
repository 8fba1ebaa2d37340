package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/model"
	"github.com/acwi-research/culture-cli/internal/perf"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id                 TEXT PRIMARY KEY,
	company            TEXT NOT NULL,
	summary            TEXT NOT NULL DEFAULT '',
	pros               TEXT NOT NULL DEFAULT '',
	cons               TEXT NOT NULL DEFAULT '',
	posted_at          DATETIME,
	rating             REAL,
	work_life_balance  REAL,
	culture_values     REAL,
	career_opportunity REAL,
	compensation       REAL,
	senior_management  REAL
);

CREATE TABLE IF NOT EXISTS review_culture_scores (
	review_id                TEXT PRIMARY KEY REFERENCES reviews(id),
	company                  TEXT NOT NULL,
	h_process_results        REAL,
	h_job_employee           REAL,
	h_professional_parochial REAL,
	h_open_closed            REAL,
	h_tight_loose            REAL,
	h_pragmatic_normative    REAL,
	m_agility                REAL NOT NULL DEFAULT 0,
	m_collaboration          REAL NOT NULL DEFAULT 0,
	m_customer_orientation   REAL NOT NULL DEFAULT 0,
	m_diversity              REAL NOT NULL DEFAULT 0,
	m_execution              REAL NOT NULL DEFAULT 0,
	m_innovation             REAL NOT NULL DEFAULT 0,
	m_integrity              REAL NOT NULL DEFAULT 0,
	m_performance            REAL NOT NULL DEFAULT 0,
	m_respect                REAL NOT NULL DEFAULT 0,
	scored_at                DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_profile_cache (
	company    TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS performance_metrics (
	company           TEXT PRIMARY KEY,
	ticker            TEXT NOT NULL DEFAULT '',
	sector            TEXT NOT NULL DEFAULT '',
	roe_5y_avg        REAL,
	revenue_growth_5y REAL,
	tsr_cagr_5y       REAL,
	op_margin_5y_avg  REAL,
	roe_latest        REAL,
	op_margin_latest  REAL,
	net_margin_latest REAL,
	market_cap        REAL,
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS extraction_queue (
	company    TEXT PRIMARY KEY,
	sector     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reviews_company ON reviews(company);
CREATE INDEX IF NOT EXISTS idx_scores_company ON review_culture_scores(company);
CREATE INDEX IF NOT EXISTS idx_queue_status ON extraction_queue(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const reviewColumns = `id, company, summary, pros, cons, posted_at, rating,
	work_life_balance, culture_values, career_opportunity, compensation, senior_management`

func (s *SQLiteStore) InsertReviews(ctx context.Context, reviews []model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert reviews")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert review")
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range reviews {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx,
			r.ID, r.Company, r.Summary, r.Pros, r.Cons, r.PostedAt, r.Rating,
			r.WorkLifeBalance, r.CultureValues, r.CareerOpportunity, r.Compensation, r.SeniorManagement,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert review %s", r.ID)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert reviews")
	}
	return inserted, nil
}

func (s *SQLiteStore) Reviews(ctx context.Context, company string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE company = ?`, company,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: reviews for %s", company)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY posted_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *SQLiteStore) ReviewCount(ctx context.Context, company string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE company = ?`, company,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: review count for %s", company)
}

func (s *SQLiteStore) Companies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT company FROM reviews ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: companies")
	}
	defer rows.Close()

	var companies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: companies iterate")
}

func (s *SQLiteStore) ReviewStats(ctx context.Context) (*model.ReviewStats, error) {
	var st model.ReviewStats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT company), COUNT(*), AVG(rating) FROM reviews`,
	).Scan(&st.TotalCompanies, &st.TotalReviews, &avg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: review stats")
	}
	if avg.Valid {
		st.AverageRating = avg.Float64
	}
	return &st, nil
}

func (s *SQLiteStore) UpsertReviewScores(ctx context.Context, scoreRows []culture.ScoreRow) error {
	if len(scoreRows) == 0 {
		return nil
	}

	cols := append(append([]string{"review_id", "company"}, hofstedeColumns...), mitColumns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(
		`INSERT OR REPLACE INTO review_culture_scores (%s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert scores")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert score")
	}
	defer stmt.Close()

	for _, row := range scoreRows {
		args := make([]any, 0, len(cols))
		args = append(args, row.ReviewID, row.Company)
		for _, dim := range culture.HofstedeDimensions() {
			args = append(args, row.Hofstede[dim])
		}
		for _, dim := range culture.MITDimensions() {
			args = append(args, row.MIT[dim])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: upsert score %s", row.ReviewID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upsert scores")
}

func (s *SQLiteStore) CultureAggregates(ctx context.Context, company string) (*culture.Aggregates, error) {
	var selects []string
	selects = append(selects, `COUNT(*)`)
	for _, col := range hofstedeColumns {
		selects = append(selects, fmt.Sprintf(`AVG(%s), COUNT(%s)`, col, col))
	}
	for _, col := range mitColumns {
		// MIT score rows are never null, so the mean runs over every scored
		// review while evidence counts only positive hits.
		selects = append(selects, fmt.Sprintf(
			`AVG(%s), COUNT(CASE WHEN %s > 0 THEN 1 END)`, col, col,
		))
	}
	query := fmt.Sprintf(
		`SELECT %s FROM review_culture_scores WHERE company = ?`,
		strings.Join(selects, ", "),
	)

	scored := 0
	hMeans := make([]sql.NullFloat64, len(hofstedeColumns))
	hCounts := make([]int, len(hofstedeColumns))
	mMeans := make([]sql.NullFloat64, len(mitColumns))
	mCounts := make([]int, len(mitColumns))

	dest := []any{&scored}
	for i := range hofstedeColumns {
		dest = append(dest, &hMeans[i], &hCounts[i])
	}
	for i := range mitColumns {
		dest = append(dest, &mMeans[i], &mCounts[i])
	}

	if err := s.db.QueryRowContext(ctx, query, company).Scan(dest...); err != nil {
		return nil, eris.Wrapf(err, "sqlite: culture aggregates for %s", company)
	}

	aggs := &culture.Aggregates{
		ScoredReviews: scored,
		Hofstede:      make(map[culture.HofstedeDimension]culture.DimensionAggregate, len(hofstedeColumns)),
		MIT:           make(map[culture.MITDimension]culture.DimensionAggregate, len(mitColumns)),
	}
	for i, dim := range culture.HofstedeDimensions() {
		if hCounts[i] > 0 && hMeans[i].Valid {
			aggs.Hofstede[dim] = culture.DimensionAggregate{Mean: hMeans[i].Float64, Count: hCounts[i]}
		}
	}
	for i, dim := range culture.MITDimensions() {
		if mCounts[i] > 0 && mMeans[i].Valid {
			aggs.MIT[dim] = culture.DimensionAggregate{Mean: mMeans[i].Float64, Count: mCounts[i]}
		}
	}
	return aggs, nil
}

func (s *SQLiteStore) MITMaxAverages(ctx context.Context) (map[culture.MITDimension]float64, error) {
	var selects []string
	for _, col := range mitColumns {
		selects = append(selects, fmt.Sprintf(`AVG(%s)`, col))
	}
	query := fmt.Sprintf(
		`SELECT %s FROM review_culture_scores GROUP BY company`,
		strings.Join(selects, ", "),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: mit max averages")
	}
	defer rows.Close()

	maxima := make(map[culture.MITDimension]float64, len(mitColumns))
	for rows.Next() {
		avgs := make([]sql.NullFloat64, len(mitColumns))
		dest := make([]any, len(mitColumns))
		for i := range avgs {
			dest[i] = &avgs[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mit averages")
		}
		for i, dim := range culture.MITDimensions() {
			if avgs[i].Valid && avgs[i].Float64 > maxima[dim] {
				maxima[dim] = avgs[i].Float64
			}
		}
	}
	return maxima, eris.Wrap(rows.Err(), "sqlite: mit max averages iterate")
}

func (s *SQLiteStore) CachedProfile(ctx context.Context, company string) (*culture.CompanyProfile, error) {
	var profileJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM company_profile_cache WHERE company = ?`, company,
	).Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: cached profile for %s", company)
	}

	var p culture.CompanyProfile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached profile")
	}
	return &p, nil
}

func (s *SQLiteStore) CacheProfile(ctx context.Context, profile *culture.CompanyProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO company_profile_cache (company, profile, updated_at) VALUES (?, ?, ?)`,
		profile.Company, string(profileJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: cache profile %s", profile.Company)
}

func (s *SQLiteStore) InvalidateProfiles(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM company_profile_cache`)
	return eris.Wrap(err, "sqlite: invalidate profiles")
}

const performanceColumns = `company, ticker, sector, roe_5y_avg, revenue_growth_5y,
	tsr_cagr_5y, op_margin_5y_avg, roe_latest, op_margin_latest, net_margin_latest, market_cap, updated_at`

func (s *SQLiteStore) UpsertPerformance(ctx context.Context, m perf.Metrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO performance_metrics (`+performanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Company, m.Ticker, m.Sector, m.ROE5yAvg, m.RevenueGrowth5y,
		m.TSRCAGR5y, m.OpMargin5yAvg, m.ROELatest, m.OpMarginLatest,
		m.NetMarginLatest, m.MarketCap, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert performance %s", m.Company)
}

func (s *SQLiteStore) Performance(ctx context.Context, company string) (*perf.Metrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+performanceColumns+` FROM performance_metrics WHERE company = ?`, company,
	)
	m, err := scanPerformance(row)
	if err == errNoPerformance {
		return nil, nil
	}
	return m, err
}

func (s *SQLiteStore) AllPerformance(ctx context.Context) ([]perf.Metrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+performanceColumns+` FROM performance_metrics ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: all performance")
	}
	defer rows.Close()

	var metrics []perf.Metrics
	for rows.Next() {
		m, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, *m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: all performance iterate")
}

func (s *SQLiteStore) EnqueueCompanies(ctx context.Context, items []model.QueueItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin enqueue")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO extraction_queue (company, sector, status, updated_at) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare enqueue")
	}
	defer stmt.Close()

	queued := 0
	now := time.Now().UTC()
	for _, item := range items {
		res, err := stmt.ExecContext(ctx, item.Company, item.Sector, string(model.QueuePending), now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: enqueue %s", item.Company)
		}
		n, _ := res.RowsAffected()
		queued += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit enqueue")
	}
	return queued, nil
}

func (s *SQLiteStore) NextQueued(ctx context.Context) (*model.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT company, sector, status, updated_at FROM extraction_queue
		 WHERE status = ? ORDER BY company LIMIT 1`,
		string(model.QueuePending),
	)

	var item model.QueueItem
	err := row.Scan(&item.Company, &item.Sector, &item.Status, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: next queued")
	}
	return &item, nil
}

func (s *SQLiteStore) UpdateQueueStatus(ctx context.Context, company string, status model.QueueStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_queue SET status = ?, updated_at = ? WHERE company = ?`,
		string(status), time.Now().UTC(), company,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update queue status %s", company)
	}
	return checkRowsAffected(res, "queue item", company)
}

func (s *SQLiteStore) QueueCounts(ctx context.Context) (map[model.QueueStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM extraction_queue GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: queue counts")
	}
	defer rows.Close()

	counts := make(map[model.QueueStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan queue count")
		}
		counts[model.QueueStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: queue counts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func collectReviews(rows *sql.Rows) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: reviews iterate")
}

func scanReview(row scannable) (*model.Review, error) {
	var r model.Review
	var postedAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.Company, &r.Summary, &r.Pros, &r.Cons, &postedAt, &r.Rating,
		&r.WorkLifeBalance, &r.CultureValues, &r.CareerOpportunity, &r.Compensation, &r.SeniorManagement,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan review")
	}
	if postedAt.Valid {
		r.PostedAt = postedAt.Time
	}
	return &r, nil
}

var errNoPerformance = eris.New("performance metrics not found")

func scanPerformance(row scannable) (*perf.Metrics, error) {
	var m perf.Metrics
	err := row.Scan(
		&m.Company, &m.Ticker, &m.Sector, &m.ROE5yAvg, &m.RevenueGrowth5y,
		&m.TSRCAGR5y, &m.OpMargin5yAvg, &m.ROELatest, &m.OpMarginLatest,
		&m.NetMarginLatest, &m.MarketCap, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errNoPerformance
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan performance")
	}
	return &m, nil
}
