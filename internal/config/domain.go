package config

import (
	"github.com/edgard/explainbot/internal/explain"
	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/search"
	"github.com/edgard/explainbot/internal/segment"
)

// KeywordConfig converts the raw keyword rules into the matcher's
// configuration. Malformed rules are dropped and reported; the returned
// configuration is always usable.
func (c *Config) KeywordConfig() (keyword.Config, []error) {
	rules := make([]keyword.Rule, 0, len(c.KeywordPrompts.Rules))
	for _, r := range c.KeywordPrompts.Rules {
		rules = append(rules, keyword.Rule{
			Keywords:      append([]string(nil), r.Keywords...),
			Prompt:        r.Prompt,
			Priority:      r.Priority,
			CaseSensitive: r.CaseSensitive,
		})
	}

	return keyword.Validate(keyword.Config{
		Enabled:       c.KeywordPrompts.Enable,
		CaseSensitive: c.KeywordPrompts.CaseSensitive,
		Strategy:      keyword.Strategy(c.KeywordPrompts.MatchStrategy),
		Rules:         rules,
	})
}

// HistoryConfig returns the context window configuration.
func (c *Config) HistoryConfig() history.Config {
	return history.Config{
		Enabled:             c.ConversationContext.Enable,
		MaxMessages:         c.ConversationContext.MaxMessages,
		AnchorTailCount:     c.ConversationContext.AnchorTailCount,
		FetchHeadroomFactor: c.ConversationContext.FetchHeadroomFactor,
		Timeout:             c.ConversationContext.Timeout,
	}
}

// SearchConfig returns the search tool priority list.
func (c *Config) SearchConfig() search.Config {
	return search.Config{ToolNames: append([]string(nil), c.ContentGeneration.SearchToolNames...)}
}

// ExplainConfig assembles the orchestrator configuration around an already
// validated keyword configuration.
func (c *Config) ExplainConfig(kw keyword.Config) explain.Config {
	return explain.Config{
		PersonaBase:       c.Persona.Base,
		Keywords:          kw,
		Search:            c.SearchConfig(),
		EnableTools:       c.ContentGeneration.EnableTools,
		ExtraPrompt:       c.ContentGeneration.ExtraPrompt,
		MaxTotalLength:    c.DetailedExplanation.MaxTotalLength,
		GenerationTimeout: c.ContentGeneration.GenerationTimeout,
		MoodTimeout:       c.Persona.MoodTimeout,
	}
}

// SegmentOptions returns the segmentation settings for delivery.
func (c *Config) SegmentOptions() segment.Options {
	alg, _ := segment.ParseAlgorithm(c.Segmentation.Algorithm)
	return segment.Options{
		Algorithm:              alg,
		SegmentLength:          c.DetailedExplanation.SegmentLength,
		MinSegments:            c.DetailedExplanation.MinSegments,
		MaxSegments:            c.DetailedExplanation.MaxSegments,
		Separators:             append([]string(nil), c.Segmentation.SentenceSeparators...),
		KeepParagraphIntegrity: c.Segmentation.KeepParagraphIntegrity,
		MinParagraphLength:     c.Segmentation.MinParagraphLength,
	}
}
