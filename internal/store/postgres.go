package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/db"
	"github.com/acwi-research/culture-cli/internal/model"
	"github.com/acwi-research/culture-cli/internal/perf"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id                 TEXT PRIMARY KEY,
	company            TEXT NOT NULL,
	summary            TEXT NOT NULL DEFAULT '',
	pros               TEXT NOT NULL DEFAULT '',
	cons               TEXT NOT NULL DEFAULT '',
	posted_at          TIMESTAMPTZ,
	rating             DOUBLE PRECISION,
	work_life_balance  DOUBLE PRECISION,
	culture_values     DOUBLE PRECISION,
	career_opportunity DOUBLE PRECISION,
	compensation       DOUBLE PRECISION,
	senior_management  DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS review_culture_scores (
	review_id                TEXT PRIMARY KEY REFERENCES reviews(id),
	company                  TEXT NOT NULL,
	h_process_results        DOUBLE PRECISION,
	h_job_employee           DOUBLE PRECISION,
	h_professional_parochial DOUBLE PRECISION,
	h_open_closed            DOUBLE PRECISION,
	h_tight_loose            DOUBLE PRECISION,
	h_pragmatic_normative    DOUBLE PRECISION,
	m_agility                DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_collaboration          DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_customer_orientation   DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_diversity              DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_execution              DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_innovation             DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_integrity              DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_performance            DOUBLE PRECISION NOT NULL DEFAULT 0,
	m_respect                DOUBLE PRECISION NOT NULL DEFAULT 0,
	scored_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_profile_cache (
	company    TEXT PRIMARY KEY,
	profile    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS performance_metrics (
	company           TEXT PRIMARY KEY,
	ticker            TEXT NOT NULL DEFAULT '',
	sector            TEXT NOT NULL DEFAULT '',
	roe_5y_avg        DOUBLE PRECISION,
	revenue_growth_5y DOUBLE PRECISION,
	tsr_cagr_5y       DOUBLE PRECISION,
	op_margin_5y_avg  DOUBLE PRECISION,
	roe_latest        DOUBLE PRECISION,
	op_margin_latest  DOUBLE PRECISION,
	net_margin_latest DOUBLE PRECISION,
	market_cap        DOUBLE PRECISION,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS extraction_queue (
	company    TEXT PRIMARY KEY,
	sector     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reviews_company ON reviews(company);
CREATE INDEX IF NOT EXISTS idx_scores_company ON review_culture_scores(company);
CREATE INDEX IF NOT EXISTS idx_queue_status ON extraction_queue(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var reviewColumnList = []string{
	"id", "company", "summary", "pros", "cons", "posted_at", "rating",
	"work_life_balance", "culture_values", "career_opportunity", "compensation", "senior_management",
}

// InsertReviews bulk-upserts reviews via COPY into a temp table. Existing
// rows are refreshed rather than duplicated.
func (s *PostgresStore) InsertReviews(ctx context.Context, reviews []model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		rows = append(rows, []any{
			r.ID, r.Company, r.Summary, r.Pros, r.Cons, r.PostedAt, r.Rating,
			r.WorkLifeBalance, r.CultureValues, r.CareerOpportunity, r.Compensation, r.SeniorManagement,
		})
	}

	n, err := db.Upsert{
		Table:   "reviews",
		Columns: reviewColumnList,
		Keys:    []string{"id"},
	}.Run(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert reviews")
	}
	return int(n), nil
}

func (s *PostgresStore) Reviews(ctx context.Context, company string) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(reviewColumnList, ", ")+` FROM reviews WHERE company = $1`,
		company,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: reviews for %s", company)
	}
	defer rows.Close()
	return collectPgReviews(rows)
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT ` + strings.Join(reviewColumnList, ", ") + ` FROM reviews WHERE 1=1`
	var args []any

	if filter.Company != "" {
		args = append(args, filter.Company)
		query += fmt.Sprintf(` AND company = $%d`, len(args))
	}
	query += ` ORDER BY posted_at DESC NULLS LAST`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()
	return collectPgReviews(rows)
}

func (s *PostgresStore) ReviewCount(ctx context.Context, company string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE company = $1`, company,
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: review count for %s", company)
}

func (s *PostgresStore) Companies(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT company FROM reviews ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: companies")
	}
	defer rows.Close()

	var companies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: companies iterate")
}

func (s *PostgresStore) ReviewStats(ctx context.Context) (*model.ReviewStats, error) {
	var st model.ReviewStats
	var avg *float64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT company), COUNT(*), AVG(rating) FROM reviews`,
	).Scan(&st.TotalCompanies, &st.TotalReviews, &avg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: review stats")
	}
	if avg != nil {
		st.AverageRating = *avg
	}
	return &st, nil
}

func (s *PostgresStore) UpsertReviewScores(ctx context.Context, scoreRows []culture.ScoreRow) error {
	if len(scoreRows) == 0 {
		return nil
	}

	cols := append(append([]string{"review_id", "company"}, hofstedeColumns...), mitColumns...)
	rows := make([][]any, 0, len(scoreRows))
	for _, row := range scoreRows {
		args := make([]any, 0, len(cols))
		args = append(args, row.ReviewID, row.Company)
		for _, dim := range culture.HofstedeDimensions() {
			args = append(args, row.Hofstede[dim])
		}
		for _, dim := range culture.MITDimensions() {
			args = append(args, row.MIT[dim])
		}
		rows = append(rows, args)
	}

	_, err := db.Upsert{
		Table:   "review_culture_scores",
		Columns: cols,
		Keys:    []string{"review_id"},
	}.Run(ctx, s.pool, rows)
	return eris.Wrap(err, "postgres: upsert review scores")
}

func (s *PostgresStore) CultureAggregates(ctx context.Context, company string) (*culture.Aggregates, error) {
	var selects []string
	selects = append(selects, `COUNT(*)`)
	for _, col := range hofstedeColumns {
		selects = append(selects, fmt.Sprintf(`AVG(%s), COUNT(%s)`, col, col))
	}
	for _, col := range mitColumns {
		// MIT score rows are never null, so the mean runs over every scored
		// review while evidence counts only positive hits.
		selects = append(selects, fmt.Sprintf(
			`AVG(%s), COUNT(*) FILTER (WHERE %s > 0)`, col, col,
		))
	}
	query := fmt.Sprintf(
		`SELECT %s FROM review_culture_scores WHERE company = $1`,
		strings.Join(selects, ", "),
	)

	scored := 0
	hMeans := make([]*float64, len(hofstedeColumns))
	hCounts := make([]int, len(hofstedeColumns))
	mMeans := make([]*float64, len(mitColumns))
	mCounts := make([]int, len(mitColumns))

	dest := []any{&scored}
	for i := range hofstedeColumns {
		dest = append(dest, &hMeans[i], &hCounts[i])
	}
	for i := range mitColumns {
		dest = append(dest, &mMeans[i], &mCounts[i])
	}

	if err := s.pool.QueryRow(ctx, query, company).Scan(dest...); err != nil {
		return nil, eris.Wrapf(err, "postgres: culture aggregates for %s", company)
	}

	aggs := &culture.Aggregates{
		ScoredReviews: scored,
		Hofstede:      make(map[culture.HofstedeDimension]culture.DimensionAggregate, len(hofstedeColumns)),
		MIT:           make(map[culture.MITDimension]culture.DimensionAggregate, len(mitColumns)),
	}
	for i, dim := range culture.HofstedeDimensions() {
		if hCounts[i] > 0 && hMeans[i] != nil {
			aggs.Hofstede[dim] = culture.DimensionAggregate{Mean: *hMeans[i], Count: hCounts[i]}
		}
	}
	for i, dim := range culture.MITDimensions() {
		if mCounts[i] > 0 && mMeans[i] != nil {
			aggs.MIT[dim] = culture.DimensionAggregate{Mean: *mMeans[i], Count: mCounts[i]}
		}
	}
	return aggs, nil
}

func (s *PostgresStore) MITMaxAverages(ctx context.Context) (map[culture.MITDimension]float64, error) {
	var selects []string
	for _, col := range mitColumns {
		selects = append(selects, fmt.Sprintf(`MAX(avg_%s)`, col))
	}
	var inner []string
	for _, col := range mitColumns {
		inner = append(inner, fmt.Sprintf(`AVG(%s) AS avg_%s`, col, col))
	}
	query := fmt.Sprintf(
		`SELECT %s FROM (SELECT company, %s FROM review_culture_scores GROUP BY company) per_company`,
		strings.Join(selects, ", "), strings.Join(inner, ", "),
	)

	avgs := make([]*float64, len(mitColumns))
	dest := make([]any, len(mitColumns))
	for i := range avgs {
		dest[i] = &avgs[i]
	}
	if err := s.pool.QueryRow(ctx, query).Scan(dest...); err != nil {
		return nil, eris.Wrap(err, "postgres: mit max averages")
	}

	maxima := make(map[culture.MITDimension]float64, len(mitColumns))
	for i, dim := range culture.MITDimensions() {
		if avgs[i] != nil {
			maxima[dim] = *avgs[i]
		}
	}
	return maxima, nil
}

func (s *PostgresStore) CachedProfile(ctx context.Context, company string) (*culture.CompanyProfile, error) {
	var profileJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM company_profile_cache WHERE company = $1`, company,
	).Scan(&profileJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: cached profile for %s", company)
	}

	var p culture.CompanyProfile
	if err := json.Unmarshal(profileJSON, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached profile")
	}
	return &p, nil
}

func (s *PostgresStore) CacheProfile(ctx context.Context, profile *culture.CompanyProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO company_profile_cache (company, profile, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (company) DO UPDATE SET profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		profile.Company, profileJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: cache profile %s", profile.Company)
}

func (s *PostgresStore) InvalidateProfiles(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM company_profile_cache`)
	return eris.Wrap(err, "postgres: invalidate profiles")
}

func (s *PostgresStore) UpsertPerformance(ctx context.Context, m perf.Metrics) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO performance_metrics (company, ticker, sector, roe_5y_avg, revenue_growth_5y,
			tsr_cagr_5y, op_margin_5y_avg, roe_latest, op_margin_latest, net_margin_latest, market_cap, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (company) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			sector = EXCLUDED.sector,
			roe_5y_avg = EXCLUDED.roe_5y_avg,
			revenue_growth_5y = EXCLUDED.revenue_growth_5y,
			tsr_cagr_5y = EXCLUDED.tsr_cagr_5y,
			op_margin_5y_avg = EXCLUDED.op_margin_5y_avg,
			roe_latest = EXCLUDED.roe_latest,
			op_margin_latest = EXCLUDED.op_margin_latest,
			net_margin_latest = EXCLUDED.net_margin_latest,
			market_cap = EXCLUDED.market_cap,
			updated_at = EXCLUDED.updated_at`,
		m.Company, m.Ticker, m.Sector, m.ROE5yAvg, m.RevenueGrowth5y,
		m.TSRCAGR5y, m.OpMargin5yAvg, m.ROELatest, m.OpMarginLatest,
		m.NetMarginLatest, m.MarketCap, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert performance %s", m.Company)
}

const pgPerformanceColumns = `company, ticker, sector, roe_5y_avg, revenue_growth_5y,
	tsr_cagr_5y, op_margin_5y_avg, roe_latest, op_margin_latest, net_margin_latest, market_cap, updated_at`

func (s *PostgresStore) Performance(ctx context.Context, company string) (*perf.Metrics, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgPerformanceColumns+` FROM performance_metrics WHERE company = $1`, company,
	)
	var m perf.Metrics
	err := row.Scan(
		&m.Company, &m.Ticker, &m.Sector, &m.ROE5yAvg, &m.RevenueGrowth5y,
		&m.TSRCAGR5y, &m.OpMargin5yAvg, &m.ROELatest, &m.OpMarginLatest,
		&m.NetMarginLatest, &m.MarketCap, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: performance for %s", company)
	}
	return &m, nil
}

func (s *PostgresStore) AllPerformance(ctx context.Context) ([]perf.Metrics, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgPerformanceColumns+` FROM performance_metrics ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all performance")
	}
	defer rows.Close()

	var metrics []perf.Metrics
	for rows.Next() {
		var m perf.Metrics
		err := rows.Scan(
			&m.Company, &m.Ticker, &m.Sector, &m.ROE5yAvg, &m.RevenueGrowth5y,
			&m.TSRCAGR5y, &m.OpMargin5yAvg, &m.ROELatest, &m.OpMarginLatest,
			&m.NetMarginLatest, &m.MarketCap, &m.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan performance")
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: all performance iterate")
}

func (s *PostgresStore) EnqueueCompanies(ctx context.Context, items []model.QueueItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	queued := 0
	now := time.Now().UTC()
	for _, item := range items {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO extraction_queue (company, sector, status, updated_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (company) DO NOTHING`,
			item.Company, item.Sector, string(model.QueuePending), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: enqueue %s", item.Company)
		}
		queued += int(tag.RowsAffected())
	}
	return queued, nil
}

func (s *PostgresStore) NextQueued(ctx context.Context) (*model.QueueItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT company, sector, status, updated_at FROM extraction_queue
		 WHERE status = $1 ORDER BY company LIMIT 1`,
		string(model.QueuePending),
	)

	var item model.QueueItem
	err := row.Scan(&item.Company, &item.Sector, &item.Status, &item.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: next queued")
	}
	return &item, nil
}

func (s *PostgresStore) UpdateQueueStatus(ctx context.Context, company string, status model.QueueStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_queue SET status = $1, updated_at = $2 WHERE company = $3`,
		string(status), time.Now().UTC(), company,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update queue status %s", company)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not found: %s", company)
	}
	return nil
}

func (s *PostgresStore) QueueCounts(ctx context.Context) (map[model.QueueStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM extraction_queue GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: queue counts")
	}
	defer rows.Close()

	counts := make(map[model.QueueStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan queue count")
		}
		counts[model.QueueStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: queue counts iterate")
}

func collectPgReviews(rows pgx.Rows) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var postedAt *time.Time
		err := rows.Scan(
			&r.ID, &r.Company, &r.Summary, &r.Pros, &r.Cons, &postedAt, &r.Rating,
			&r.WorkLifeBalance, &r.CultureValues, &r.CareerOpportunity, &r.Compensation, &r.SeniorManagement,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		if postedAt != nil {
			r.PostedAt = *postedAt
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: reviews iterate")
}
