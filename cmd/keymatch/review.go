package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>...",
	Short: "Confirm or reject extracted keywords interactively (TUI)",
	Long:  "Extracts keywords from a document and opens a split-pane review. Saved verdicts are stored as feedback under a new analysis id and feed relationship mining.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReviewCmd,
}

func init() {
	addExtractFlags(reviewCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	// Log output corrupts the alt-screen, so logging is discarded unless --debug.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if debug {
		silentLogger = setupLogger(true)
	}
	ctx := context.Background()

	e, err := setupEnv(ctx, silentLogger)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := e.pipeline.Defaults()
	applyExtractFlags(cmd, &opts)

	docs := make([]review.Document, len(args))
	for i, path := range args {
		text, err := readDocument(path)
		if err != nil {
			return err
		}
		docs[i] = review.Document{Label: filepath.Base(path), Text: text}
	}

	for {
		choice := 0
		if len(docs) > 1 {
			choice, err = review.RunDocumentPicker(docs)
			if err != nil {
				return fmt.Errorf("picker: %w", err)
			}
			if choice < 0 {
				return nil
			}
		}
		doc := docs[choice]

		keywords, err := review.RunLoader(doc.Label, func(ctx context.Context) ([]model.RankedKeyword, error) {
			return e.pipeline.Extract(ctx, doc.Text, opts), nil
		})
		if err != nil {
			fmt.Printf("Error extracting keywords: %v\n", err)
			if len(docs) == 1 {
				return nil
			}
			continue
		}

		analysisID := uuid.NewString()
		records, save, err := review.RunReviewTUI(doc.Label, doc.Text, analysisID, keywords)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		if save {
			for _, rec := range records {
				if err := e.store.RecordFeedback(ctx, rec); err != nil {
					return fmt.Errorf("record feedback: %w", err)
				}
			}
			fmt.Printf("Saved %d verdicts for %s (analysis %s)\n", len(records), doc.Label, analysisID)
		}

		if len(docs) == 1 {
			return nil
		}
	}
}
