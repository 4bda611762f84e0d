package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for keymatch.
type Config struct {
	Database      DatabaseConfig
	Cache         CacheConfig
	Extraction    ExtractionConfig
	Scoring       ScoringConfig
	Compare       CompareConfig
	Relationships RelationshipsConfig
	Retry         RetryConfig
	Queue         QueueConfig
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file
	URL    string // postgres connection string, expanded from env by Load
}

// CacheConfig controls the taxonomy snapshot cache and the result cache.
type CacheConfig struct {
	TaxonomyTTL time.Duration
	ResultTTL   time.Duration
	RedisURL    string // empty disables the Redis tier
	MaxEntries  int    // in-memory result entries, 0 for unbounded
}

// ExtractionConfig holds the default extraction options.
type ExtractionConfig struct {
	MaxResults     int
	MinScore       float64
	FuzzyThreshold float64
	Industry       string
	JobRole        string
	Workers        int // concurrent extractions in batch mode
}

// ScoringConfig overrides the composite score coefficients. All zero means
// the built-in weighting.
type ScoringConfig struct {
	BaseConfidence float64 `yaml:"base_confidence"`
	Priority       float64 `yaml:"priority"`
	Difficulty     float64 `yaml:"difficulty"`
	Industry       float64 `yaml:"industry"`
	MatchQuality   float64 `yaml:"match_quality"`
}

// IsZero reports whether no coefficient was configured.
func (s ScoringConfig) IsZero() bool {
	return s == ScoringConfig{}
}

// CompareConfig controls resume/job comparison.
type CompareConfig struct {
	MaxResults   int
	DisplayLimit int
}

// RelationshipsConfig controls co-occurrence persistence.
type RelationshipsConfig struct {
	MinThreshold    int
	RebuildInterval time.Duration
}

// RetryConfig controls store retries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// QueueConfig describes the RabbitMQ worker.
type QueueConfig struct {
	URL          string
	RequestQueue string
	ResultQueue  string
	Workers      int
}

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as
// strings, pointers where zero is a valid setting).
type rawConfig struct {
	Database      rawDatabaseConfig      `yaml:"database"`
	Cache         rawCacheConfig         `yaml:"cache"`
	Extraction    rawExtractionConfig    `yaml:"extraction"`
	Scoring       ScoringConfig          `yaml:"scoring"`
	Compare       rawCompareConfig       `yaml:"compare"`
	Relationships rawRelationshipsConfig `yaml:"relationships"`
	Retry         rawRetryConfig         `yaml:"retry"`
	Queue         rawQueueConfig         `yaml:"queue"`
}

type rawDatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type rawCacheConfig struct {
	TaxonomyTTL string `yaml:"taxonomy_ttl"`
	ResultTTL   string `yaml:"result_ttl"`
	RedisURL    string `yaml:"redis_url"`
	MaxEntries  *int   `yaml:"max_entries"`
}

type rawExtractionConfig struct {
	MaxResults     *int     `yaml:"max_results"`
	MinScore       *float64 `yaml:"min_score"`
	FuzzyThreshold *float64 `yaml:"fuzzy_threshold"`
	Industry       string   `yaml:"industry"`
	JobRole        string   `yaml:"job_role"`
	Workers        *int     `yaml:"workers"`
}

type rawCompareConfig struct {
	MaxResults   *int `yaml:"max_results"`
	DisplayLimit *int `yaml:"display_limit"`
}

type rawRelationshipsConfig struct {
	MinThreshold    *int   `yaml:"min_threshold"`
	RebuildInterval string `yaml:"rebuild_interval"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawQueueConfig struct {
	URL          string `yaml:"url"`
	RequestQueue string `yaml:"request_queue"`
	ResultQueue  string `yaml:"result_queue"`
	Workers      *int   `yaml:"workers"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: "keymatch.db"},
		Cache: CacheConfig{
			TaxonomyTTL: 5 * time.Minute,
			ResultTTL:   15 * time.Minute,
			MaxEntries:  1000,
		},
		Extraction: ExtractionConfig{
			MaxResults:     30,
			MinScore:       0.4,
			FuzzyThreshold: 0.75,
			Workers:        4,
		},
		Compare:       CompareConfig{MaxResults: 30, DisplayLimit: 20},
		Relationships: RelationshipsConfig{MinThreshold: 2, RebuildInterval: time.Hour},
		Retry:         RetryConfig{MaxRetries: 2, BaseDelay: 200 * time.Millisecond},
		Queue: QueueConfig{
			RequestQueue: "keymatch.compare",
			ResultQueue:  "keymatch.results",
			Workers:      2,
		},
	}
}

// Load reads and parses the YAML config file at path, validates it, and returns
// Config. Settings absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if raw.Database.Driver != "" {
		cfg.Database.Driver = raw.Database.Driver
	}
	if raw.Database.Path != "" {
		cfg.Database.Path = raw.Database.Path
	}
	cfg.Database.URL = raw.Database.URL

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"cache.taxonomy_ttl", raw.Cache.TaxonomyTTL, &cfg.Cache.TaxonomyTTL},
		{"cache.result_ttl", raw.Cache.ResultTTL, &cfg.Cache.ResultTTL},
		{"relationships.rebuild_interval", raw.Relationships.RebuildInterval, &cfg.Relationships.RebuildInterval},
		{"retry.base_delay", raw.Retry.BaseDelay, &cfg.Retry.BaseDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	cfg.Cache.RedisURL = raw.Cache.RedisURL
	setInt(&cfg.Cache.MaxEntries, raw.Cache.MaxEntries)

	setInt(&cfg.Extraction.MaxResults, raw.Extraction.MaxResults)
	setFloat(&cfg.Extraction.MinScore, raw.Extraction.MinScore)
	setFloat(&cfg.Extraction.FuzzyThreshold, raw.Extraction.FuzzyThreshold)
	setInt(&cfg.Extraction.Workers, raw.Extraction.Workers)
	cfg.Extraction.Industry = raw.Extraction.Industry
	cfg.Extraction.JobRole = raw.Extraction.JobRole

	cfg.Scoring = raw.Scoring

	setInt(&cfg.Compare.MaxResults, raw.Compare.MaxResults)
	setInt(&cfg.Compare.DisplayLimit, raw.Compare.DisplayLimit)

	setInt(&cfg.Relationships.MinThreshold, raw.Relationships.MinThreshold)
	setInt(&cfg.Retry.MaxRetries, raw.Retry.MaxRetries)

	cfg.Queue.URL = raw.Queue.URL
	if raw.Queue.RequestQueue != "" {
		cfg.Queue.RequestQueue = raw.Queue.RequestQueue
	}
	if raw.Queue.ResultQueue != "" {
		cfg.Queue.ResultQueue = raw.Queue.ResultQueue
	}
	setInt(&cfg.Queue.Workers, raw.Queue.Workers)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required when driver is \"sqlite\"")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required when driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Database.Driver)
	}

	if cfg.Cache.TaxonomyTTL <= 0 {
		return fmt.Errorf("cache.taxonomy_ttl must be positive, got %v", cfg.Cache.TaxonomyTTL)
	}
	if cfg.Cache.ResultTTL <= 0 {
		return fmt.Errorf("cache.result_ttl must be positive, got %v", cfg.Cache.ResultTTL)
	}
	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative, got %d", cfg.Cache.MaxEntries)
	}

	if cfg.Extraction.MaxResults < 0 {
		return fmt.Errorf("extraction.max_results must not be negative, got %d", cfg.Extraction.MaxResults)
	}
	if cfg.Extraction.MinScore < 0 || cfg.Extraction.MinScore > 1 {
		return fmt.Errorf("extraction.min_score must be between 0 and 1, got %v", cfg.Extraction.MinScore)
	}
	if cfg.Extraction.FuzzyThreshold <= 0 || cfg.Extraction.FuzzyThreshold > 1 {
		return fmt.Errorf("extraction.fuzzy_threshold must be in (0, 1], got %v", cfg.Extraction.FuzzyThreshold)
	}
	if cfg.Extraction.Workers < 1 {
		return fmt.Errorf("extraction.workers must be at least 1, got %d", cfg.Extraction.Workers)
	}

	for name, w := range map[string]float64{
		"base_confidence": cfg.Scoring.BaseConfidence,
		"priority":        cfg.Scoring.Priority,
		"difficulty":      cfg.Scoring.Difficulty,
		"industry":        cfg.Scoring.Industry,
		"match_quality":   cfg.Scoring.MatchQuality,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("scoring.%s must be between 0 and 1, got %v", name, w)
		}
	}

	if cfg.Compare.MaxResults < 1 {
		return fmt.Errorf("compare.max_results must be at least 1, got %d", cfg.Compare.MaxResults)
	}
	if cfg.Compare.DisplayLimit < 1 {
		return fmt.Errorf("compare.display_limit must be at least 1, got %d", cfg.Compare.DisplayLimit)
	}

	if cfg.Relationships.MinThreshold < 1 {
		return fmt.Errorf("relationships.min_threshold must be at least 1, got %d", cfg.Relationships.MinThreshold)
	}
	if cfg.Relationships.RebuildInterval <= 0 {
		return fmt.Errorf("relationships.rebuild_interval must be positive, got %v", cfg.Relationships.RebuildInterval)
	}

	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %v", cfg.Retry.BaseDelay)
	}

	if cfg.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1, got %d", cfg.Queue.Workers)
	}
	return nil
}
