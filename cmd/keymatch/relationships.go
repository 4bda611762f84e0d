package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/relationship"
	"github.com/amishk599/keymatch/internal/scheduler"
)

var relationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "Mine skill co-occurrence relationships from confirmed feedback",
}

var rebuildThreshold int

var relationshipsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute and persist relationships once",
	RunE:  runRelationshipsRebuild,
}

var relatedTop int

var relationshipsRelatedCmd = &cobra.Command{
	Use:   "related <keyword>...",
	Short: "Recommend skills that co-occur with the given keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRelationshipsRelated,
}

var relationshipsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild relationships periodically",
	Long:  "Runs a rebuild immediately and then every relationships.rebuild_interval; blocks until SIGINT/SIGTERM.",
	RunE:  runRelationshipsWatch,
}

func init() {
	relationshipsRebuildCmd.Flags().IntVar(&rebuildThreshold, "min-threshold", 0, "minimum co-occurrence count persisted (default: relationships.min_threshold from config)")
	relationshipsRelatedCmd.Flags().IntVarP(&relatedTop, "top", "n", 10, "number of recommendations")

	relationshipsCmd.AddCommand(relationshipsRebuildCmd, relationshipsRelatedCmd, relationshipsWatchCmd)
	rootCmd.AddCommand(relationshipsCmd)
}

func runRelationshipsRebuild(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	threshold := rebuildThreshold
	if threshold <= 0 {
		threshold = e.cfg.Relationships.MinThreshold
	}
	n, err := relationship.NewAnalyzer(e.store, threshold, logger).PersistRelationships(ctx, threshold)
	if err != nil {
		return err
	}
	logger.Info("skill relationships rebuilt", "pairs", n, "min_threshold", threshold)
	return nil
}

func runRelationshipsRelated(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	ids := make([]int64, 0, len(args))
	for _, text := range args {
		k, err := e.store.KeywordByText(ctx, strings.ToLower(strings.TrimSpace(text)))
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("unknown keyword, skipping", "keyword", text)
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup keyword %q: %w", text, err)
		}
		ids = append(ids, k.ID)
	}

	co, err := relationship.NewAnalyzer(e.store, e.cfg.Relationships.MinThreshold, logger).Cooccurrences(ctx)
	if err != nil {
		return err
	}
	recs := relationship.RecommendRelated(co, ids, relatedTop)

	names := make(map[int64]string, len(recs))
	for _, r := range recs {
		if k, err := e.store.KeywordByID(ctx, r.KeywordID); err == nil {
			names[r.KeywordID] = k.Text
		}
	}
	printRecommendations(os.Stdout, recs, names, len(ids) == 1)
	fmt.Printf("\nTotal: %d recommendations\n", len(recs))
	return nil
}

// printRecommendations writes the recommendation table. The Strength column
// only appears for a single input skill, where each score is one pair's count.
func printRecommendations(w io.Writer, recs []relationship.Recommendation, names map[int64]string, withStrength bool) {
	if withStrength {
		fmt.Fprintf(w, "%-28s %-8s %s\n", "Keyword", "Score", "Strength")
		fmt.Fprintln(w, strings.Repeat("─", 50))
	} else {
		fmt.Fprintf(w, "%-28s %s\n", "Keyword", "Score")
		fmt.Fprintln(w, strings.Repeat("─", 37))
	}
	for _, r := range recs {
		name, ok := names[r.KeywordID]
		if !ok {
			name = fmt.Sprintf("#%d", r.KeywordID)
		}
		strength, single := r.Strength()
		if withStrength && single {
			fmt.Fprintf(w, "%-28s %-8d %s\n", name, r.Score, strength)
		} else {
			fmt.Fprintf(w, "%-28s %d\n", name, r.Score)
		}
	}
}

func runRelationshipsWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	analyzer := relationship.NewAnalyzer(e.store, e.cfg.Relationships.MinThreshold, logger)
	sched := scheduler.NewScheduler([]scheduler.Job{analyzer}, e.cfg.Relationships.RebuildInterval, logger)
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	logger.Info("goodbye")
	return nil
}
