package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/cache"
	"github.com/amishk599/keymatch/internal/extract"
	"github.com/amishk599/keymatch/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve compare requests from a RabbitMQ queue",
	Long:  "Consumes compare requests from queue.request_queue and publishes results to queue.result_queue; blocks until SIGINT/SIGTERM.",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Queue.URL == "" {
		return fmt.Errorf("queue.url is required to run the worker")
	}

	results := newResultCache(e)
	defer results.Close()

	comparer := cache.NewCachedComparator(
		extract.NewComparator(e.pipeline, e.cfg.Compare.MaxResults, logger),
		results,
	)
	pool := worker.NewPool(worker.Config{
		URL:          e.cfg.Queue.URL,
		RequestQueue: e.cfg.Queue.RequestQueue,
		ResultQueue:  e.cfg.Queue.ResultQueue,
		Workers:      e.cfg.Queue.Workers,
	}, worker.NewProcessor(comparer, logger), logger)

	logger.Info("worker starting",
		"request_queue", e.cfg.Queue.RequestQueue,
		"result_queue", e.cfg.Queue.ResultQueue,
		"workers", e.cfg.Queue.Workers,
	)
	if err := pool.Run(ctx); err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	hits, misses := results.Stats()
	logger.Info("goodbye", "cache_hits", hits, "cache_misses", misses)
	return nil
}
