package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/cache"
	"github.com/amishk599/keymatch/internal/extract"
)

var compareCmd = &cobra.Command{
	Use:   "compare <resume> <job>",
	Short: "Compare a resume against a job description",
	Long:  "Extracts keywords from both documents, reports job keywords found in and missing from the resume, and prints a 0-100 document similarity score.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&logOutput, "log", false, "emit results as structured log lines instead of a table")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	resume, err := readDocument(args[0])
	if err != nil {
		return err
	}
	job, err := readDocument(args[1])
	if err != nil {
		return err
	}

	results := newResultCache(e)
	defer results.Close()

	comparer := cache.NewCachedComparator(
		extract.NewComparator(e.pipeline, e.cfg.Compare.MaxResults, logger),
		results,
	)
	return newReporter(e).ReportComparison(comparer.Compare(ctx, resume, job))
}

func newResultCache(e *env) *cache.ResultCache {
	return cache.New(e.cfg.Cache.RedisURL, e.cfg.Cache.ResultTTL, e.cfg.Cache.MaxEntries, e.logger)
}
