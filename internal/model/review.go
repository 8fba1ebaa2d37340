// Package model holds the shared domain records exchanged between the
// stores, the scoring engine, and the ingestion worker.
package model

import (
	"strings"
	"time"
)

// Review is one employee review as supplied by the review source.
// Rating fields are nil when the reviewer left them blank.
type Review struct {
	ID       string    `json:"id"`
	Company  string    `json:"company"`
	Summary  string    `json:"summary"`
	Pros     string    `json:"pros"`
	Cons     string    `json:"cons"`
	PostedAt time.Time `json:"posted_at"`

	Rating            *float64 `json:"rating,omitempty"`
	WorkLifeBalance   *float64 `json:"work_life_balance,omitempty"`
	CultureValues     *float64 `json:"culture_values,omitempty"`
	CareerOpportunity *float64 `json:"career_opportunities,omitempty"`
	Compensation      *float64 `json:"compensation_benefits,omitempty"`
	SeniorManagement  *float64 `json:"senior_management,omitempty"`
}

// Text joins the free-text fields into the blob handed to the scorer.
func (r Review) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{r.Summary, r.Pros, r.Cons} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ReviewStats summarizes the whole review corpus.
type ReviewStats struct {
	TotalCompanies int     `json:"total_companies"`
	TotalReviews   int     `json:"total_reviews"`
	AverageRating  float64 `json:"avg_rating"`
}

// QueueStatus is the lifecycle state of a company in the ingestion queue.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueExtracting QueueStatus = "extracting"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
	QueueSkipped    QueueStatus = "skipped"
)

// QueueItem is one company awaiting (or past) review ingestion.
type QueueItem struct {
	Company   string      `json:"company"`
	Sector    string      `json:"sector,omitempty"`
	Status    QueueStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}
