// Package store persists reviews, per-review culture scores, aggregated
// profiles, financial metrics, and the ingestion queue behind a single
// interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/model"
	"github.com/acwi-research/culture-cli/internal/perf"
)

// ReviewFilter specifies criteria for listing reviews.
type ReviewFilter struct {
	Company string `json:"company,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the culture analysis pipeline.
type Store interface {
	// Reviews
	InsertReviews(ctx context.Context, reviews []model.Review) (int, error)
	Reviews(ctx context.Context, company string) ([]model.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	ReviewCount(ctx context.Context, company string) (int, error)
	Companies(ctx context.Context) ([]string, error)
	ReviewStats(ctx context.Context) (*model.ReviewStats, error)

	// Per-review culture scores
	UpsertReviewScores(ctx context.Context, rows []culture.ScoreRow) error
	CultureAggregates(ctx context.Context, company string) (*culture.Aggregates, error)
	MITMaxAverages(ctx context.Context) (map[culture.MITDimension]float64, error)

	// Profile cache
	CachedProfile(ctx context.Context, company string) (*culture.CompanyProfile, error)
	CacheProfile(ctx context.Context, profile *culture.CompanyProfile) error
	InvalidateProfiles(ctx context.Context) error

	// Financial performance
	UpsertPerformance(ctx context.Context, m perf.Metrics) error
	Performance(ctx context.Context, company string) (*perf.Metrics, error)
	AllPerformance(ctx context.Context) ([]perf.Metrics, error)

	// Extraction queue
	EnqueueCompanies(ctx context.Context, items []model.QueueItem) (int, error)
	NextQueued(ctx context.Context) (*model.QueueItem, error)
	UpdateQueueStatus(ctx context.Context, company string, status model.QueueStatus) error
	QueueCounts(ctx context.Context) (map[model.QueueStatus]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// hofstedeColumns and mitColumns fix the score-table column order shared by
// both implementations. Hofstede columns are nullable, MIT columns default 0.
var hofstedeColumns = []string{
	"h_process_results",
	"h_job_employee",
	"h_professional_parochial",
	"h_open_closed",
	"h_tight_loose",
	"h_pragmatic_normative",
}

var mitColumns = []string{
	"m_agility",
	"m_collaboration",
	"m_customer_orientation",
	"m_diversity",
	"m_execution",
	"m_innovation",
	"m_integrity",
	"m_performance",
	"m_respect",
}

func hofstedeColumn(dim culture.HofstedeDimension) string { return "h_" + string(dim) }
func mitColumn(dim culture.MITDimension) string           { return "m_" + string(dim) }
