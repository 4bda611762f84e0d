package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/config"
	"github.com/amishk599/keymatch/internal/extract"
	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/retry"
	"github.com/amishk599/keymatch/internal/scorer"
	"github.com/amishk599/keymatch/internal/store"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

const defaultConfigPath = "keymatch.yaml"

var (
	cfgPath  string
	debug    bool
	dryRun   bool
	seedPath string
)

var rootCmd = &cobra.Command{
	Use:          "keymatch",
	Short:        "Keyword and skill matching engine",
	Long:         "keymatch extracts skills from free text against a canonical taxonomy, ranks them, compares resumes with job descriptions and mines skill relationships from confirmed matches.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: KEYMATCH_CONFIG env var or ./keymatch.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "use an in-memory store; nothing is persisted")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "taxonomy seed file loaded into the in-memory store (with --dry-run)")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > KEYMATCH_CONFIG env var > "./keymatch.yaml".
// Only the implicit default path may be missing, in which case defaults apply.
func loadConfig(path string) (*config.Config, error) {
	explicit := true
	if path == "" {
		if env := os.Getenv("KEYMATCH_CONFIG"); env != "" {
			path = env
		} else {
			path = defaultConfigPath
			explicit = false
		}
	}
	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// openStore opens the configured backend wrapped with retries. The returned
// closer releases the underlying connection.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Store, io.Closer, error) {
	var (
		inner  model.Store
		closer io.Closer
	)
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		inner, closer = pg, pg
	default:
		sq, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		inner, closer = sq, sq
	}
	logger.Debug("store opened", "driver", cfg.Database.Driver)
	return retry.NewRetryStore(inner, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger), closer, nil
}

func scoringWeights(cfg *config.Config) scorer.Weights {
	if cfg.Scoring.IsZero() {
		return scorer.DefaultWeights()
	}
	return scorer.Weights{
		BaseConfidence: cfg.Scoring.BaseConfidence,
		Priority:       cfg.Scoring.Priority,
		Difficulty:     cfg.Scoring.Difficulty,
		Industry:       cfg.Scoring.Industry,
		MatchQuality:   cfg.Scoring.MatchQuality,
	}
}

func extractOptions(cfg *config.Config) extract.Options {
	return extract.Options{
		JobRole:        cfg.Extraction.JobRole,
		Industry:       cfg.Extraction.Industry,
		MaxResults:     cfg.Extraction.MaxResults,
		MinScore:       cfg.Extraction.MinScore,
		FuzzyThreshold: cfg.Extraction.FuzzyThreshold,
	}
}

func buildPipeline(cfg *config.Config, st model.Store, logger *slog.Logger) (*taxonomy.Cache, *extract.Pipeline) {
	tax := taxonomy.NewCache(st, cfg.Cache.TaxonomyTTL, logger)
	p := extract.NewPipeline(tax, scorer.New(scoringWeights(cfg)), extractOptions(cfg), logger)
	return tax, p
}

// env bundles what most subcommands need.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    model.Store
	taxonomy *taxonomy.Cache
	pipeline *extract.Pipeline
	closer   io.Closer // nil in dry-run mode
}

func (e *env) Close() {
	if e.closer == nil {
		return
	}
	if err := e.closer.Close(); err != nil {
		e.logger.Warn("failed to close store", "error", err)
	}
}

func setupEnv(ctx context.Context, logger *slog.Logger) (*env, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		mem := store.NewMemoryStore()
		tax, p := buildPipeline(cfg, mem, logger)
		if seedPath != "" {
			seed, err := taxonomy.LoadSeed(seedPath)
			if err != nil {
				return nil, err
			}
			if _, err := seed.Apply(ctx, tax); err != nil {
				return nil, fmt.Errorf("apply seed: %w", err)
			}
		}
		return &env{cfg: cfg, logger: logger, store: mem, taxonomy: tax, pipeline: p}, nil
	}

	st, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	tax, p := buildPipeline(cfg, st, logger)
	return &env{cfg: cfg, logger: logger, store: st, taxonomy: tax, pipeline: p, closer: closer}, nil
}

// readDocument reads a file, or stdin when path is "-".
func readDocument(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// applyExtractFlags overrides opts with any extraction flags set on cmd.
func applyExtractFlags(cmd *cobra.Command, opts *extract.Options) {
	flags := cmd.Flags()
	if flags.Changed("industry") {
		opts.Industry, _ = flags.GetString("industry")
	}
	if flags.Changed("job-role") {
		opts.JobRole, _ = flags.GetString("job-role")
	}
	if flags.Changed("max-results") {
		opts.MaxResults, _ = flags.GetInt("max-results")
	}
	if flags.Changed("min-score") {
		opts.MinScore, _ = flags.GetFloat64("min-score")
	}
	opts.Industry = strings.TrimSpace(opts.Industry)
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().String("industry", "", "industry used for relevance scoring")
	cmd.Flags().String("job-role", "", "job role context")
	cmd.Flags().Int("max-results", extract.DefaultMaxResults, "maximum keywords returned")
	cmd.Flags().Float64("min-score", extract.DefaultMinScore, "minimum composite score")
}
