package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Extract keywords from many documents concurrently",
	Long:  "Runs extraction over every file with a bounded number of workers and reports each result in argument order.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	addExtractFlags(batchCmd)
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "concurrent extractions (default: extraction.workers from config)")
	batchCmd.Flags().BoolVar(&logOutput, "log", false, "emit results as structured log lines instead of a table")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	texts := make([]string, len(args))
	for i, path := range args {
		if texts[i], err = readDocument(path); err != nil {
			return err
		}
	}

	opts := e.pipeline.Defaults()
	applyExtractFlags(cmd, &opts)

	workers := batchWorkers
	if workers <= 0 {
		workers = e.cfg.Extraction.Workers
	}

	results, err := e.pipeline.ExtractBatch(ctx, texts, opts, workers)
	if err != nil {
		return fmt.Errorf("batch extract: %w", err)
	}

	rep := newReporter(e)
	for i, keywords := range results {
		if err := rep.ReportKeywords(args[i], keywords); err != nil {
			return err
		}
	}
	logger.Info("batch complete", "documents", len(args), "workers", workers)
	return nil
}
