package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Manage the keyword taxonomy",
}

var taxonomyImportCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import keywords and matching rules from a YAML seed file",
	Long:  "Validates the seed file, then upserts every keyword by text and adds every matching rule. Re-importing the same file is a no-op.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonomyImport,
}

var (
	listCategory   string
	listPriority   string
	listDeprecated bool
)

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the taxonomy as a table",
	RunE:  runTaxonomyList,
}

var (
	rulePattern    string
	ruleType       string
	ruleKeyword    string
	ruleConfidence float64
	rulePosition   int
)

var taxonomyAddRuleCmd = &cobra.Command{
	Use:   "add-rule",
	Short: "Add a matching rule mapping noisy text to a keyword",
	RunE:  runTaxonomyAddRule,
}

func init() {
	taxonomyListCmd.Flags().StringVar(&listCategory, "category", "", "only keywords in this category")
	taxonomyListCmd.Flags().StringVar(&listPriority, "priority", "", "only keywords with this priority")
	taxonomyListCmd.Flags().BoolVar(&listDeprecated, "deprecated", false, "include deprecated keywords")

	taxonomyAddRuleCmd.Flags().StringVar(&rulePattern, "pattern", "", "rule pattern (required)")
	taxonomyAddRuleCmd.Flags().StringVar(&ruleType, "type", string(model.MatchSubstring), "regex, substring, fuzzy or version_variant")
	taxonomyAddRuleCmd.Flags().StringVar(&ruleKeyword, "keyword", "", "canonical text of the target keyword (required)")
	taxonomyAddRuleCmd.Flags().Float64Var(&ruleConfidence, "confidence", 0.9, "confidence assigned to matches of this rule")
	taxonomyAddRuleCmd.Flags().IntVar(&rulePosition, "position", 0, "evaluation order, lower first")
	_ = taxonomyAddRuleCmd.MarkFlagRequired("pattern")
	_ = taxonomyAddRuleCmd.MarkFlagRequired("keyword")

	taxonomyCmd.AddCommand(taxonomyImportCmd, taxonomyListCmd, taxonomyAddRuleCmd)
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomyImport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	seed, err := taxonomy.LoadSeed(args[0])
	if err != nil {
		return err
	}

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := seed.Apply(ctx, e.taxonomy)
	if err != nil {
		return err
	}
	logger.Info("taxonomy imported", "file", args[0], "keywords", res.Keywords, "rules", res.Rules)
	return nil
}

func runTaxonomyList(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	keywords, err := e.taxonomy.AllKeywords(ctx, model.KeywordFilter{
		Category:          listCategory,
		Priority:          model.Priority(listPriority),
		IncludeDeprecated: listDeprecated,
	})
	if err != nil {
		return fmt.Errorf("list keywords: %w", err)
	}

	fmt.Printf("%-6s %-28s %-16s %-10s %-13s %s\n", "ID", "Keyword", "Category", "Priority", "Difficulty", "Synonyms")
	fmt.Println(strings.Repeat("─", 96))

	deprecated := 0
	for _, k := range keywords {
		text := k.Text
		if k.Deprecated {
			text += " (deprecated)"
			deprecated++
		}
		fmt.Printf("%-6d %-28s %-16s %-10s %-13s %s\n",
			k.ID, text, k.Category, k.Priority, k.Difficulty, strings.Join(k.Synonyms, ", "))
	}

	fmt.Printf("\nTotal: %d keywords (%d deprecated)\n", len(keywords), deprecated)
	return nil
}

func runTaxonomyAddRule(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	mt := model.MatchType(ruleType)
	switch mt {
	case model.MatchSubstring, model.MatchFuzzy, model.MatchVersionVariant:
	case model.MatchRegex:
		if _, err := regexp.Compile(rulePattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	default:
		return fmt.Errorf("unknown rule type %q", ruleType)
	}
	if ruleConfidence < 0 || ruleConfidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", ruleConfidence)
	}

	e, err := setupEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	target, err := e.taxonomy.KeywordByText(ctx, strings.ToLower(strings.TrimSpace(ruleKeyword)))
	if err != nil {
		return fmt.Errorf("resolve keyword %q: %w", ruleKeyword, err)
	}

	r := model.MatchingRule{
		Pattern:    rulePattern,
		Type:       mt,
		KeywordID:  target.ID,
		Confidence: ruleConfidence,
		Position:   rulePosition,
	}
	if err := e.taxonomy.AddMatchingRule(ctx, &r); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	logger.Info("matching rule added", "id", r.ID, "pattern", r.Pattern, "type", r.Type, "keyword", target.Text)
	return nil
}
