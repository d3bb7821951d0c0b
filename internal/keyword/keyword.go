// Package keyword selects subject-specific prompt framing for a trigger text
// from an ordered list of keyword rules.
package keyword

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy controls how several hitting rules resolve to one prompt decision.
type Strategy string

const (
	// StrategyFirst picks the earliest configured rule that hits.
	StrategyFirst Strategy = "first"
	// StrategyHighest picks the hitting rule with the largest priority.
	StrategyHighest Strategy = "highest"
	// StrategyMerge concatenates every hitting rule's prompt in rule order.
	StrategyMerge Strategy = "merge"
)

// MergeSeparator joins fragments under StrategyMerge.
const MergeSeparator = "\n\n"

// ErrInvalidRule marks a rule rejected at load time.
var ErrInvalidRule = errors.New("invalid keyword rule")

// Rule maps a set of keywords to a prompt fragment.
type Rule struct {
	Keywords []string
	Prompt   string
	Priority int
	// CaseSensitive overrides Config.CaseSensitive when non-nil.
	CaseSensitive *bool
}

// Config is the immutable keyword prompt configuration.
type Config struct {
	Enabled       bool
	CaseSensitive bool
	Strategy      Strategy
	Rules         []Rule
}

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFirst, "":
		return StrategyFirst, nil
	case StrategyHighest:
		return StrategyHighest, nil
	case StrategyMerge:
		return StrategyMerge, nil
	default:
		return StrategyFirst, fmt.Errorf("unknown match strategy %q", s)
	}
}

// Validate drops malformed rules and reports one error per dropped rule.
// The returned Config is safe to use even when errors are returned.
func Validate(cfg Config) (Config, []error) {
	var errs []error

	out := Config{
		Enabled:       cfg.Enabled,
		CaseSensitive: cfg.CaseSensitive,
		Strategy:      cfg.Strategy,
		Rules:         make([]Rule, 0, len(cfg.Rules)),
	}

	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		errs = append(errs, err)
	}
	out.Strategy = strategy

	for i, r := range cfg.Rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if strings.TrimSpace(k) != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			errs = append(errs, fmt.Errorf("%w: rule %d has no keywords", ErrInvalidRule, i))
			continue
		}
		if strings.TrimSpace(r.Prompt) == "" {
			errs = append(errs, fmt.Errorf("%w: rule %d has an empty prompt", ErrInvalidRule, i))
			continue
		}

		rule := Rule{
			Keywords: keywords,
			Prompt:   r.Prompt,
			Priority: r.Priority,
		}
		if r.CaseSensitive != nil {
			cs := *r.CaseSensitive
			rule.CaseSensitive = &cs
		}
		out.Rules = append(out.Rules, rule)
	}

	return out, errs
}

// Match returns the prompt fragment selected for text, or ok=false when the
// feature is disabled or no rule hits.
func Match(text string, cfg Config) (fragment string, ok bool) {
	if !cfg.Enabled || len(cfg.Rules) == 0 {
		return "", false
	}

	switch cfg.Strategy {
	case StrategyHighest:
		return matchHighest(text, cfg)
	case StrategyMerge:
		return matchMerge(text, cfg)
	default:
		return matchFirst(text, cfg)
	}
}

func matchFirst(text string, cfg Config) (string, bool) {
	folded := strings.ToLower(text)
	for i := range cfg.Rules {
		if hits(&cfg.Rules[i], text, folded, cfg.CaseSensitive) {
			return cfg.Rules[i].Prompt, true
		}
	}
	return "", false
}

func matchHighest(text string, cfg Config) (string, bool) {
	folded := strings.ToLower(text)
	best := -1
	for i := range cfg.Rules {
		if !hits(&cfg.Rules[i], text, folded, cfg.CaseSensitive) {
			continue
		}
		// strict comparison keeps the earliest rule on ties
		if best < 0 || cfg.Rules[i].Priority > cfg.Rules[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return cfg.Rules[best].Prompt, true
}

func matchMerge(text string, cfg Config) (string, bool) {
	folded := strings.ToLower(text)
	seen := make(map[string]struct{})
	var parts []string
	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		if !hits(r, text, folded, cfg.CaseSensitive) {
			continue
		}
		if _, dup := seen[r.Prompt]; dup {
			continue
		}
		seen[r.Prompt] = struct{}{}
		parts = append(parts, r.Prompt)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, MergeSeparator), true
}

func hits(r *Rule, text, folded string, defaultCaseSensitive bool) bool {
	caseSensitive := defaultCaseSensitive
	if r.CaseSensitive != nil {
		caseSensitive = *r.CaseSensitive
	}

	for _, k := range r.Keywords {
		if k == "" {
			continue
		}
		if caseSensitive {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}
		if strings.Contains(folded, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
