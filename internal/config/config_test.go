package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/segment"
)

const validYAML = `
logger:
  level: debug
  json: true
database:
  path: test.db
gemini:
  api_key: key
  model_name: gemini-test
telegram:
  token: tok
  admin_user_id: 42
persona:
  name: 麦麦
  base: 你是麦麦。
keyword_prompts:
  enable: true
  match_strategy: highest
  rules:
    - keywords: ["技术"]
      prompt: A
      priority: 10
    - keywords: ["历史"]
      prompt: B
      priority: 5
      case_sensitive: true
    - keywords: []
      prompt: broken
conversation_context:
  max_messages: 12
  anchor_tail_count: 3
  fetch_headroom_factor: 1.5
  timeout: 750ms
content_generation:
  search_tool_names: [web_search]
detailed_explanation:
  segment_length: 300
  send_delay: 2s
segmentation:
  algorithm: sentence
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, int64(42), cfg.Telegram.AdminUserID)
	assert.Equal(t, 750*time.Millisecond, cfg.ConversationContext.Timeout)
	assert.Equal(t, 2*time.Second, cfg.DetailedExplanation.SendDelay)
	assert.Equal(t, time.Second, cfg.Persona.MoodTimeout)

	// defaults fill whatever the file leaves out
	assert.Equal(t, 4, cfg.DetailedExplanation.MaxSegments)
	assert.Equal(t, config.DefaultActivationKeywords, cfg.DetailedExplanation.ActivationKeywords)
	assert.True(t, cfg.DetailedExplanation.StripMarkdown)
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.NotEmpty(t, cfg.Messages.GenerationFailedMsg)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "logger:\n  level: info\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		extra string
	}{
		{"log level", "logger:\n  level: loud\n"},
		{"algorithm", "segmentation:\n  algorithm: random\n"},
		{"segments", "detailed_explanation:\n  min_segments: 5\n  max_segments: 2\n"},
		{"context timeout", "conversation_context:\n  enable: true\n  timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			body := "gemini:\n  api_key: k\ntelegram:\n  token: t\n  admin_user_id: 1\n" + tt.extra
			_, err := config.LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "telegram: [unclosed"))
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLoadConfig_EnvironmentOnly(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "env-token")
	t.Setenv("BOT_TELEGRAM_ADMIN_USER_ID", "7")
	t.Setenv("BOT_GEMINI_API_KEY", "env-key")
	t.Setenv("BOT_CONVERSATION_CONTEXT_MAX_MESSAGES", "9")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, int64(7), cfg.Telegram.AdminUserID)
	assert.Equal(t, 9, cfg.ConversationContext.MaxMessages)
}

func TestKeywordConfig_DropsMalformedRules(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	kc, errs := cfg.KeywordConfig()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], keyword.ErrInvalidRule))

	assert.Equal(t, keyword.StrategyHighest, kc.Strategy)
	require.Len(t, kc.Rules, 2)
	require.NotNil(t, kc.Rules[1].CaseSensitive)
	assert.True(t, *kc.Rules[1].CaseSensitive)

	got, ok := keyword.Match("请讲讲这个技术的历史", kc)
	assert.True(t, ok)
	assert.Equal(t, "A", got)
}

func TestKeywordConfig_UnknownStrategy(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{KeywordPrompts: config.KeywordPromptsConfig{Enable: true, MatchStrategy: "best"}}
	kc, errs := cfg.KeywordConfig()
	assert.Len(t, errs, 1)
	assert.Equal(t, keyword.StrategyFirst, kc.Strategy)
}

func TestDomainConversions(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	hc := cfg.HistoryConfig()
	assert.True(t, hc.Enabled)
	assert.Equal(t, 12, hc.MaxMessages)
	assert.Equal(t, 3, hc.AnchorTailCount)
	assert.Equal(t, 18, hc.FetchLimit())

	assert.Equal(t, []string{"web_search"}, cfg.SearchConfig().ToolNames)

	kc, _ := cfg.KeywordConfig()
	ec := cfg.ExplainConfig(kc)
	assert.Equal(t, "你是麦麦。", ec.PersonaBase)
	assert.Equal(t, 3000, ec.MaxTotalLength)
	assert.True(t, ec.EnableTools)
	assert.Equal(t, time.Second, ec.MoodTimeout)

	so := cfg.SegmentOptions()
	assert.Equal(t, segment.Sentence, so.Algorithm)
	assert.Equal(t, 300, so.SegmentLength)
	assert.Len(t, so.Separators, 6)
}
