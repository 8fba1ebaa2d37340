package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acwi-research/culture-cli/internal/culture"
)

var (
	scoreCompany string
	scoreWorkers int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score stored reviews against both culture frameworks",
	Long:  "Runs the keyword scorer over stored reviews, persists per-review dimension scores, and refreshes company profiles. Scores all companies unless --company is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		companies := []string{scoreCompany}
		if scoreCompany == "" {
			companies, err = env.Store.Companies(ctx)
			if err != nil {
				return err
			}
		}
		if len(companies) == 0 {
			fmt.Println("no companies with reviews")
			return nil
		}

		workers := scoreWorkers
		if workers == 0 {
			workers = cfg.Culture.ScoreWorkers
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, company := range companies {
			g.Go(func() error {
				reviews, err := env.Store.Reviews(gctx, company)
				if err != nil {
					return err
				}

				var rows []culture.ScoreRow
				for _, r := range reviews {
					scores := env.Scorer.Score(r.Text())
					if scores == nil {
						continue
					}
					rows = append(rows, culture.RowFromScores(r.ID, company, scores))
				}
				if err := env.Store.UpsertReviewScores(gctx, rows); err != nil {
					return err
				}

				zap.L().Info("company scored",
					zap.String("company", company),
					zap.Int("reviews", len(reviews)),
					zap.Int("scored", len(rows)),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Stored scores changed; cached profiles and maxima are stale.
		if err := env.Store.InvalidateProfiles(ctx); err != nil {
			return err
		}
		env.Normalizer.Invalidate()

		fmt.Printf("scored reviews for %d companies\n", len(companies))
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCompany, "company", "", "score a single company")
	scoreCmd.Flags().IntVar(&scoreWorkers, "workers", 0, "concurrent companies (default from config)")
	rootCmd.AddCommand(scoreCmd)
}
