package matcher

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/similarity"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

const (
	// ruleFuzzyThreshold is the minimum ratio for a fuzzy matching rule.
	ruleFuzzyThreshold = 0.85
	versionPlaceholder = "[version]"
	versionPattern     = `\d+\.?\d*`
)

// CompiledRule is a matching rule bound to its active target keyword, with
// any regex compiled.
type CompiledRule struct {
	Rule    model.MatchingRule
	Keyword model.Keyword
	re      *regexp.Regexp
}

// RuleSet is the ordered list of usable rules for one snapshot.
type RuleSet struct {
	rules []CompiledRule
}

// Len is the number of usable rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// CompileRules prepares the snapshot's rules in evaluation order. Rules with a
// pattern that does not compile, an unknown match type, or a target that is
// missing or deprecated are dropped and logged; the rest keep their order.
func CompileRules(snap *taxonomy.Snapshot, logger *slog.Logger) *RuleSet {
	rs := &RuleSet{}
	for _, r := range snap.Rules() {
		target, ok := snap.ByID(r.KeywordID)
		if !ok {
			logger.Debug("skipping rule with inactive target",
				"rule_id", r.ID,
				"pattern", r.Pattern,
				"keyword_id", r.KeywordID,
			)
			continue
		}

		cr := CompiledRule{Rule: r, Keyword: target}
		switch r.Type {
		case model.MatchRegex:
			re, err := regexp.Compile(`(?i)^(?:` + r.Pattern + `)`)
			if err != nil {
				logger.Warn("skipping malformed matching rule", "rule_id", r.ID, "pattern", r.Pattern, "error", err)
				continue
			}
			cr.re = re
		case model.MatchVersionVariant:
			expr := strings.ReplaceAll(r.Pattern, versionPlaceholder, versionPattern)
			re, err := regexp.Compile(`(?i)^(?:` + expr + `)`)
			if err != nil {
				logger.Warn("skipping malformed matching rule", "rule_id", r.ID, "pattern", r.Pattern, "error", err)
				continue
			}
			cr.re = re
		case model.MatchSubstring, model.MatchFuzzy:
		default:
			logger.Warn("skipping matching rule with unknown type", "rule_id", r.ID, "type", r.Type)
			continue
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs
}

// Satisfies reports whether token meets the rule's pattern.
func (cr CompiledRule) Satisfies(token string) bool {
	switch cr.Rule.Type {
	case model.MatchRegex, model.MatchVersionVariant:
		return cr.re.MatchString(token)
	case model.MatchSubstring:
		return strings.Contains(strings.ToLower(token), strings.ToLower(cr.Rule.Pattern))
	case model.MatchFuzzy:
		return similarity.Ratio(cr.Rule.Pattern, token) >= ruleFuzzyThreshold
	}
	return false
}

// First returns the first rule that token satisfies.
func (rs *RuleSet) First(token string) (CompiledRule, bool) {
	if rs == nil {
		return CompiledRule{}, false
	}
	for _, cr := range rs.rules {
		if cr.Satisfies(token) {
			return cr, true
		}
	}
	return CompiledRule{}, false
}
