package taxonomy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/keymatch/internal/model"
)

// SeedFile is the YAML document accepted by `keymatch taxonomy import`.
type SeedFile struct {
	Keywords []SeedKeyword `yaml:"keywords" validate:"dive"`
	Rules    []SeedRule    `yaml:"rules" validate:"dive"`
}

// SeedKeyword describes one taxonomy entry.
type SeedKeyword struct {
	Text              string             `yaml:"text" validate:"required,lowercase,max=100"`
	Category          string             `yaml:"category" validate:"max=50"`
	Priority          string             `yaml:"priority" validate:"omitempty,oneof=critical important medium optional"`
	Difficulty        string             `yaml:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	Synonyms          []string           `yaml:"synonyms" validate:"dive,required"`
	IndustryRelevance map[string]float64 `yaml:"industry_relevance" validate:"dive,gte=0,lte=1"`
	BaseConfidence    *float64           `yaml:"base_confidence" validate:"omitempty,gte=0,lte=1"`
	Deprecated        bool               `yaml:"deprecated"`
}

// SeedRule describes one matching rule. Keyword refers to a keyword by text.
type SeedRule struct {
	Pattern    string  `yaml:"pattern" validate:"required"`
	Type       string  `yaml:"type" validate:"required,oneof=regex substring fuzzy version_variant"`
	Keyword    string  `yaml:"keyword" validate:"required"`
	Confidence float64 `yaml:"confidence" validate:"gte=0,lte=1"`
	Position   int     `yaml:"position"`
}

// SeedResult counts what Apply wrote.
type SeedResult struct {
	Keywords int
	Rules    int
}

// LoadSeed reads and validates a taxonomy seed file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses and validates seed YAML.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := validator.New().Struct(&seed); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}

	seen := make(map[string]bool, len(seed.Keywords))
	for _, k := range seed.Keywords {
		if seen[k.Text] {
			return nil, fmt.Errorf("validate seed: duplicate keyword %q", k.Text)
		}
		seen[k.Text] = true
	}
	return &seed, nil
}

// Apply upserts every keyword and then every rule through the cache, so the
// snapshot is invalidated by the time Apply returns. Rules may target keywords
// defined in this file or already present in the store.
func (s *SeedFile) Apply(ctx context.Context, c *Cache) (SeedResult, error) {
	var res SeedResult
	for _, sk := range s.Keywords {
		k := sk.toKeyword()
		if err := c.UpsertKeyword(ctx, &k); err != nil {
			return res, fmt.Errorf("upsert keyword %q: %w", sk.Text, err)
		}
		res.Keywords++
	}

	for _, sr := range s.Rules {
		target, err := c.KeywordByText(ctx, strings.ToLower(sr.Keyword))
		if err != nil {
			return res, fmt.Errorf("resolve rule target %q: %w", sr.Keyword, err)
		}
		conf := sr.Confidence
		if conf == 0 {
			conf = 0.9
		}
		r := model.MatchingRule{
			Pattern:    sr.Pattern,
			Type:       model.MatchType(sr.Type),
			KeywordID:  target.ID,
			Confidence: conf,
			Position:   sr.Position,
		}
		if err := c.AddMatchingRule(ctx, &r); err != nil {
			return res, fmt.Errorf("add rule %q: %w", sr.Pattern, err)
		}
		res.Rules++
	}
	return res, nil
}

func (sk SeedKeyword) toKeyword() model.Keyword {
	k := model.Keyword{
		Text:              sk.Text,
		Category:          sk.Category,
		Priority:          model.Priority(sk.Priority),
		Difficulty:        model.Difficulty(sk.Difficulty),
		Synonyms:          sk.Synonyms,
		IndustryRelevance: sk.IndustryRelevance,
		BaseConfidence:    1.0,
		Deprecated:        sk.Deprecated,
	}
	if k.Category == "" {
		k.Category = "general"
	}
	if k.Priority == "" {
		k.Priority = model.PriorityMedium
	}
	if k.Difficulty == "" {
		k.Difficulty = model.DifficultyIntermediate
	}
	if sk.BaseConfidence != nil {
		k.BaseConfidence = *sk.BaseConfidence
	}
	return k
}
