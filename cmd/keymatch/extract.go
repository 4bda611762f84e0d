package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/report"
)

var logOutput bool

var extractCmd = &cobra.Command{
	Use:   "extract <file|->",
	Short: "Extract ranked keywords from a document",
	Long:  "Reads a document (or stdin with \"-\") and prints the taxonomy keywords it mentions, ranked by composite score.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	addExtractFlags(extractCmd)
	extractCmd.Flags().BoolVar(&logOutput, "log", false, "emit results as structured log lines instead of a table")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	text, err := readDocument(args[0])
	if err != nil {
		return err
	}

	opts := e.pipeline.Defaults()
	applyExtractFlags(cmd, &opts)

	keywords := e.pipeline.Extract(ctx, text, opts)
	return newReporter(e).ReportKeywords(args[0], keywords)
}

func newReporter(e *env) model.Reporter {
	if logOutput {
		return report.NewLogReporter(e.logger)
	}
	return report.NewTextReporter(os.Stdout, e.cfg.Compare.DisplayLimit)
}
