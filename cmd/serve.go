package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/ingest"
	"github.com/acwi-research/culture-cli/internal/perf"
)

var (
	servePort       int
	serveReviewsCSV string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the culture analytics HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{env: env}

		// The ingest worker is available when a review source is configured.
		if serveReviewsCSV != "" {
			src, err := ingest.NewCSVSource(serveReviewsCSV)
			if err != nil {
				return err
			}
			api.worker = ingest.NewWorker(env.Store, src, env.Scorer, ingest.Options{
				RatePerMinute: cfg.Ingest.RatePerMinute,
				MaxRetries:    cfg.Ingest.MaxRetries,
				SkipThreshold: cfg.Ingest.SkipThreshold,
				OnIngested:    env.Normalizer.Invalidate,
			})
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/stats", api.stats)
			r.Get("/companies", api.companies)
			r.Get("/culture-profile/{company}", api.cultureProfile)
			r.Get("/industry-average", api.industryAverage)
			r.Get("/culture-comparison", api.cultureComparison)
			r.Get("/culture-benchmarking/{company}", api.cultureBenchmarking)
			r.Get("/correlations", api.correlations)
			r.Get("/culture-alignment/{company}", api.cultureAlignment)
			r.Get("/performance/{company}", api.performance)

			r.Route("/extraction", func(r chi.Router) {
				r.Get("/status", api.extractionStatus)
				r.Post("/start", api.extractionStart)
				r.Post("/pause", api.extractionPause)
				r.Post("/resume", api.extractionResume)
				r.Post("/stop", api.extractionStop)
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			if api.worker != nil {
				api.worker.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveReviewsCSV, "reviews-csv", "", "review CSV backing the ingestion worker")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	env    *appEnv
	worker *ingest.Worker
}

// envelope is the response shape the dashboard consumes.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "error": msg})
}

func (s *apiServer) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.env.Store.ReviewStats(r.Context())
	if err != nil {
		zap.L().Error("stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "stats": stats})
}

func (s *apiServer) companies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.env.Store.Companies(r.Context())
	if err != nil {
		zap.L().Error("companies", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load companies")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "companies": companies})
}

func (s *apiServer) cultureProfile(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	p, err := s.env.profile(r.Context(), company)
	if err != nil {
		zap.L().Error("culture profile", zap.String("company", company), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no reviews for company")
		return
	}
	confScore, confLevel := p.OverallConfidence()
	writeJSON(w, http.StatusOK, envelope{
		"success":          true,
		"profile":          p,
		"confidence":       confScore,
		"confidence_level": confLevel,
	})
}

func (s *apiServer) industryAverage(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.env.allProfiles(r.Context())
	if err != nil {
		zap.L().Error("industry average", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build profiles")
		return
	}
	hofstede, mit := culture.IndustryAverages(profiles)
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"companies": len(profiles),
		"hofstede":  hofstede,
		"mit_big_9": mit,
	})
}

func (s *apiServer) cultureComparison(w http.ResponseWriter, r *http.Request) {
	c1 := r.URL.Query().Get("company1")
	c2 := r.URL.Query().Get("company2")
	if c1 == "" || c2 == "" {
		writeError(w, http.StatusBadRequest, "company1 and company2 are required")
		return
	}

	p1, err := s.env.profile(r.Context(), c1)
	if err == nil && p1 == nil {
		writeError(w, http.StatusNotFound, "no reviews for "+c1)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}
	p2, err := s.env.profile(r.Context(), c2)
	if err == nil && p2 == nil {
		writeError(w, http.StatusNotFound, "no reviews for "+c2)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":    true,
		"company1":   c1,
		"company2":   c2,
		"comparison": culture.Compare(p1, p2),
	})
}

func (s *apiServer) cultureBenchmarking(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	p, err := s.env.profile(r.Context(), company)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no reviews for company")
		return
	}

	peers, err := s.env.allProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build peer profiles")
		return
	}
	hofstede, mit := culture.BenchmarkProfile(p, peers)
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"company":   company,
		"hofstede":  hofstede,
		"mit_big_9": mit,
	})
}

func (s *apiServer) correlations(w http.ResponseWriter, r *http.Request) {
	analysis, _, err := s.analysis(r.Context())
	if err != nil {
		zap.L().Error("correlations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute correlations")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "correlations": analysis})
}

func (s *apiServer) cultureAlignment(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	metric := perf.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = perf.MetricComposite
	}

	p, err := s.env.profile(r.Context(), company)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no reviews for company")
		return
	}

	analysis, profiles, err := s.analysis(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute correlations")
		return
	}
	hofstedeAvg, mitAvg := culture.IndustryAverages(profiles)
	alignment := perf.ScoreAlignment(p, hofstedeAvg, mitAvg, analysis, metric)
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"metric":    metric,
		"alignment": alignment,
	})
}

func (s *apiServer) performance(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	m, err := s.env.Store.Performance(r.Context(), company)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load performance")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no performance metrics for company")
		return
	}

	all, err := s.env.Store.AllPerformance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load peer metrics")
		return
	}
	peers := perf.ComputePeerStats(all, "")
	writeJSON(w, http.StatusOK, envelope{
		"success":         true,
		"metrics":         m,
		"composite_score": perf.CompositeScore(*m, peers),
	})
}

func (s *apiServer) analysis(ctx context.Context) (*perf.Analysis, []*culture.CompanyProfile, error) {
	profiles, err := s.env.allProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := s.env.Store.AllPerformance(ctx)
	if err != nil {
		return nil, nil, err
	}
	return perf.Correlate(profiles, metrics), profiles, nil
}

func (s *apiServer) extractionStatus(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion worker not configured")
		return
	}
	status, err := s.worker.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read worker status")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "status": status})
}

func (s *apiServer) extractionStart(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion worker not configured")
		return
	}
	s.worker.Start(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, envelope{"success": true, "state": ingest.StateRunning})
}

func (s *apiServer) extractionPause(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion worker not configured")
		return
	}
	s.worker.Pause()
	writeJSON(w, http.StatusOK, envelope{"success": true, "state": ingest.StatePaused})
}

func (s *apiServer) extractionResume(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion worker not configured")
		return
	}
	s.worker.Resume()
	writeJSON(w, http.StatusOK, envelope{"success": true, "state": ingest.StateRunning})
}

func (s *apiServer) extractionStop(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion worker not configured")
		return
	}
	s.worker.Stop()
	writeJSON(w, http.StatusOK, envelope{"success": true, "state": ingest.StateStopped})
}
