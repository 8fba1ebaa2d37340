package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/acwi-research/culture-cli/internal/ingest"
	"github.com/acwi-research/culture-cli/internal/model"
)

var ingestReviewsCSV string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Manage review ingestion",
}

var ingestEnqueueCmd = &cobra.Command{
	Use:   "enqueue [company ...]",
	Short: "Queue companies for review extraction",
	Long:  "Queues the named companies, or every company found in --reviews-csv when no names are given. Companies already queued are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		companies := args
		if len(companies) == 0 {
			if ingestReviewsCSV == "" {
				return eris.New("provide company names or --reviews-csv")
			}
			src, err := ingest.NewCSVSource(ingestReviewsCSV)
			if err != nil {
				return err
			}
			companies = src.Companies()
		}

		items := make([]model.QueueItem, 0, len(companies))
		for _, c := range companies {
			items = append(items, model.QueueItem{Company: c})
		}
		queued, err := env.Store.EnqueueCompanies(ctx, items)
		if err != nil {
			return err
		}

		fmt.Printf("queued %d of %d companies\n", queued, len(items))
		return nil
	},
}

var ingestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion worker until the queue drains or interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if ingestReviewsCSV == "" {
			return eris.New("--reviews-csv is required")
		}

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		src, err := ingest.NewCSVSource(ingestReviewsCSV)
		if err != nil {
			return err
		}

		worker := ingest.NewWorker(env.Store, src, env.Scorer, ingest.Options{
			RatePerMinute: cfg.Ingest.RatePerMinute,
			MaxRetries:    cfg.Ingest.MaxRetries,
			SkipThreshold: cfg.Ingest.SkipThreshold,
			OnIngested:    env.Normalizer.Invalidate,
		})
		worker.Start(ctx)

		<-ctx.Done()
		worker.Stop()

		status, err := worker.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("processed %d companies (%d failed)\n", status.Processed, status.Failed)
		return nil
	},
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show extraction queue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		counts, err := env.Store.QueueCounts(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		for _, status := range []model.QueueStatus{
			model.QueuePending, model.QueueExtracting, model.QueueCompleted,
			model.QueueFailed, model.QueueSkipped,
		} {
			if n, ok := counts[status]; ok {
				fmt.Printf("%-12s %d\n", status, n)
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.PersistentFlags().StringVar(&ingestReviewsCSV, "reviews-csv", "", "review CSV file backing the source")
	ingestCmd.AddCommand(ingestEnqueueCmd, ingestRunCmd, ingestStatusCmd)
	rootCmd.AddCommand(ingestCmd)
}
