// Package ingest runs the background review-ingestion worker: it drains the
// extraction queue at a bounded rate, pulls reviews from the source, scores
// them, and persists both.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/model"
	"github.com/acwi-research/culture-cli/internal/resilience"
	"github.com/acwi-research/culture-cli/internal/store"
)

// Source supplies reviews for a queued company.
type Source interface {
	FetchReviews(ctx context.Context, company, sector string) ([]model.Review, error)
}

// State is the worker lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Status is a point-in-time snapshot of the worker and its queue.
type Status struct {
	State       State                     `json:"state"`
	Current     string                    `json:"current_company,omitempty"`
	Processed   int                       `json:"processed"`
	Failed      int                       `json:"failed"`
	QueueCounts map[model.QueueStatus]int `json:"queue_counts"`
}

// Options configures a Worker.
type Options struct {
	// RatePerMinute caps how many companies are processed per minute.
	RatePerMinute int
	MaxRetries    int
	// SkipThreshold skips companies already holding this many reviews.
	SkipThreshold int
	// PollInterval is the idle sleep when the queue is empty.
	PollInterval time.Duration
	// OnIngested runs after each successful ingest, e.g. cache invalidation.
	OnIngested func()
}

// Worker drains the extraction queue.
type Worker struct {
	st      store.Store
	src     Source
	scorer  *culture.Scorer
	limiter *rate.Limiter
	breaker *resilience.Breaker
	opts    Options

	mu        sync.Mutex
	state     State
	current   string
	processed int
	failed    int
	cancel    context.CancelFunc
}

// NewWorker creates a Worker. A nil scorer uses the default lexicon.
func NewWorker(st store.Store, src Source, scorer *culture.Scorer, opts Options) *Worker {
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if scorer == nil {
		scorer = culture.NewScorer(nil)
	}
	return &Worker{
		st:      st,
		src:     src,
		scorer:  scorer,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), 1),
		breaker: resilience.NewBreaker(5, 2*time.Minute),
		opts:    opts,
		state:   StateIdle,
	}
}

// Start launches the processing loop in a goroutine. Calling Start on a
// running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateRunning || w.state == StatePaused {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.state = StateRunning
	go w.run(ctx)
	zap.L().Info("ingest: worker started",
		zap.Int("rate_per_minute", w.opts.RatePerMinute),
	)
}

// Pause keeps the loop alive but stops it taking new queue items.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateRunning {
		w.state = StatePaused
		zap.L().Info("ingest: worker paused")
	}
}

// Resume continues a paused worker.
func (w *Worker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StatePaused {
		w.state = StateRunning
		zap.L().Info("ingest: worker resumed")
	}
}

// Stop cancels the loop. The in-flight company finishes its current step.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	w.state = StateStopped
	zap.L().Info("ingest: worker stopped")
}

// Status reports the worker and queue state.
func (w *Worker) Status(ctx context.Context) (*Status, error) {
	counts, err := w.st.QueueCounts(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return &Status{
		State:       w.state,
		Current:     w.current,
		Processed:   w.processed,
		Failed:      w.failed,
		QueueCounts: counts,
	}, nil
}

func (w *Worker) run(ctx context.Context) {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		w.mu.Lock()
		paused := w.state == StatePaused
		w.mu.Unlock()
		if paused {
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		item, err := w.st.NextQueued(ctx)
		if err != nil {
			zap.L().Error("ingest: read queue", zap.Error(err))
			if !sleep(ctx, w.opts.PollInterval) {
				return
			}
			continue
		}
		if item == nil {
			if !sleep(ctx, w.opts.PollInterval) {
				return
			}
			continue
		}

		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item *model.QueueItem) {
	w.mu.Lock()
	w.current = item.Company
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.current = ""
		w.mu.Unlock()
	}()

	if err := w.st.UpdateQueueStatus(ctx, item.Company, model.QueueExtracting); err != nil {
		zap.L().Error("ingest: mark extracting", zap.String("company", item.Company), zap.Error(err))
		return
	}

	if w.opts.SkipThreshold > 0 {
		n, err := w.st.ReviewCount(ctx, item.Company)
		if err == nil && n >= w.opts.SkipThreshold {
			zap.L().Info("ingest: skipping well-covered company",
				zap.String("company", item.Company),
				zap.Int("reviews", n),
			)
			w.finish(ctx, item.Company, model.QueueSkipped)
			return
		}
	}

	reviews, err := w.fetch(ctx, item)
	if err != nil {
		zap.L().Error("ingest: fetch reviews",
			zap.String("company", item.Company),
			zap.Error(err),
		)
		w.mu.Lock()
		w.failed++
		w.mu.Unlock()
		w.finish(ctx, item.Company, model.QueueFailed)
		return
	}

	if err := w.persist(ctx, item.Company, reviews); err != nil {
		zap.L().Error("ingest: persist reviews",
			zap.String("company", item.Company),
			zap.Error(err),
		)
		w.mu.Lock()
		w.failed++
		w.mu.Unlock()
		w.finish(ctx, item.Company, model.QueueFailed)
		return
	}

	w.mu.Lock()
	w.processed++
	w.mu.Unlock()
	w.finish(ctx, item.Company, model.QueueCompleted)

	if w.opts.OnIngested != nil {
		w.opts.OnIngested()
	}
	zap.L().Info("ingest: company completed",
		zap.String("company", item.Company),
		zap.Int("reviews", len(reviews)),
	)
}

// fetch pulls reviews through the circuit breaker with retries. Repeated
// source failures open the breaker and fail fast until it half-opens.
func (w *Worker) fetch(ctx context.Context, item *model.QueueItem) ([]model.Review, error) {
	backoff := resilience.SourceBackoff()
	if w.opts.MaxRetries > 0 {
		backoff.Attempts = w.opts.MaxRetries + 1
	}
	backoff.Notify = resilience.LogRetries("review-source")

	return resilience.Retry(ctx, backoff, func(ctx context.Context) ([]model.Review, error) {
		return resilience.Guard(ctx, w.breaker, func(ctx context.Context) ([]model.Review, error) {
			return w.src.FetchReviews(ctx, item.Company, item.Sector)
		})
	})
}

// persist stores reviews and their per-review culture scores, then drops the
// profile cache so the next profile read reflects the new data.
func (w *Worker) persist(ctx context.Context, company string, reviews []model.Review) error {
	// IDs are assigned here so the score rows reference the stored rows.
	for i := range reviews {
		if reviews[i].ID == "" {
			reviews[i].ID = uuid.New().String()
		}
	}

	inserted, err := w.st.InsertReviews(ctx, reviews)
	if err != nil {
		return eris.Wrapf(err, "ingest: insert reviews for %s", company)
	}

	var rows []culture.ScoreRow
	for _, r := range reviews {
		scores := w.scorer.Score(r.Text())
		if scores == nil {
			continue
		}
		rows = append(rows, culture.RowFromScores(r.ID, company, scores))
	}
	if err := w.st.UpsertReviewScores(ctx, rows); err != nil {
		return eris.Wrapf(err, "ingest: upsert scores for %s", company)
	}

	if err := w.st.InvalidateProfiles(ctx); err != nil {
		return eris.Wrapf(err, "ingest: invalidate profiles after %s", company)
	}

	zap.L().Debug("ingest: persisted",
		zap.String("company", company),
		zap.Int("inserted", inserted),
		zap.Int("scored", len(rows)),
	)
	return nil
}

func (w *Worker) finish(ctx context.Context, company string, status model.QueueStatus) {
	if err := w.st.UpdateQueueStatus(ctx, company, status); err != nil {
		zap.L().Error("ingest: update queue status",
			zap.String("company", company),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
