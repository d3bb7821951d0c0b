package explain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/explainbot/internal/explain"
	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/persona"
	"github.com/edgard/explainbot/internal/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeGenerator struct {
	mu    sync.Mutex
	reqs  []explain.GenerationRequest
	reply string
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, req explain.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func (f *fakeGenerator) only(t *testing.T) explain.GenerationRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.reqs, 1, "generator must be called exactly once")
	return f.reqs[0]
}

type staticSource struct {
	msgs  []history.Message
	block bool
}

func (s staticSource) RecentMessages(ctx context.Context, _ int64, _ int, _ int64) ([]history.Message, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.msgs, nil
}

type moodStub string

func (m moodStub) CurrentMood(context.Context, int64) (string, error) { return string(m), nil }

type toolList []string

func (t toolList) AvailableTools() []string { return t }

var t0 = time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

func chatHistory() []history.Message {
	return []history.Message{
		{ID: 1, ChatID: 5, SenderID: 100, Text: "有人懂快速排序吗", Timestamp: t0},
		{ID: 2, ChatID: 5, SenderID: 200, Text: "分治思想", Timestamp: t0.Add(time.Minute), ReplyToID: 1},
	}
}

func baseConfig() explain.Config {
	return explain.Config{
		PersonaBase: "你是麦麦，一个乐于助人的群聊机器人。",
		Keywords: keyword.Config{
			Enabled:  true,
			Strategy: keyword.StrategyHighest,
			Rules: []keyword.Rule{
				{Keywords: []string{"技术"}, Prompt: "FRAGMENT-A", Priority: 10},
				{Keywords: []string{"历史"}, Prompt: "FRAGMENT-B", Priority: 5},
			},
		},
		Search:      search.Config{ToolNames: []string{"web_search", search.LegacyToolName}},
		EnableTools: true,
		ExtraPrompt: "EXTRA",
	}
}

func assembler(src history.Source, timeout time.Duration) *history.Assembler {
	return history.NewAssembler(src, history.Config{
		Enabled:             true,
		MaxMessages:         10,
		AnchorTailCount:     2,
		FetchHeadroomFactor: 1.5,
		Timeout:             timeout,
	}, history.WithLogger(quiet))
}

func newOrchestrator(cfg explain.Config, src history.Source, gen explain.Generator, moods any, tools explain.ToolLister) *explain.Orchestrator {
	return explain.NewOrchestrator(quiet, cfg, assembler(src, time.Second), gen, persona.NewAdapter(quiet, ""), moods, tools)
}

func request(text string) explain.Request {
	return explain.Request{ChatID: 5, RequesterID: 100, TriggerMessageID: 3, TriggerText: text}
}

func TestOrchestrator_PromptOrder(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "  答案  "}
	o := newOrchestrator(baseConfig(), staticSource{msgs: chatHistory()}, gen, moodStub("兴奋"), toolList{"web_search"})

	got, err := o.Generate(context.Background(), request("请讲讲这个技术的历史"))
	require.NoError(t, err)
	assert.Equal(t, "答案", got)

	req := gen.only(t)
	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, "web_search", req.SearchTool)

	parts := []string{"你是麦麦", "兴奋", "FRAGMENT-A", "UID 200: 分治思想", "请讲讲这个技术的历史"}
	last := -1
	for _, p := range parts {
		idx := strings.Index(req.Prompt, p)
		require.GreaterOrEqual(t, idx, 0, "prompt is missing %q", p)
		assert.Greater(t, idx, last, "%q is out of order", p)
		last = idx
	}
	assert.NotContains(t, req.Prompt, "FRAGMENT-B")
	assert.NotContains(t, req.Prompt, explain.DetailedInstruction)
}

func TestOrchestrator_DefaultFramingOnNoMatch(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "ok"}
	o := newOrchestrator(baseConfig(), staticSource{}, gen, nil, nil)

	_, err := o.Generate(context.Background(), request("解释一下量子纠缠"))
	require.NoError(t, err)

	req := gen.only(t)
	assert.Contains(t, req.Prompt, explain.DetailedInstruction+" EXTRA")
	assert.Contains(t, req.Prompt, persona.DefaultMood)
	assert.Empty(t, req.SearchTool, "no tool lister means no search augmentation")
}

type hungMoods struct{}

func (hungMoods) CurrentMood(ctx context.Context, _ int64) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestOrchestrator_SlowMoodFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.MoodTimeout = 30 * time.Millisecond
	gen := &fakeGenerator{reply: "ok"}
	o := newOrchestrator(cfg, staticSource{msgs: chatHistory()}, gen, hungMoods{}, nil)

	start := time.Now()
	_, err := o.Generate(context.Background(), request("解释一下量子纠缠"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, gen.only(t).Prompt, persona.DefaultMood)
}

func TestOrchestrator_KeywordFeatureDisabled(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Keywords.Enabled = false
	gen := &fakeGenerator{reply: "ok"}
	o := newOrchestrator(cfg, staticSource{msgs: chatHistory()}, gen, moodStub("开心"), nil)

	_, err := o.Generate(context.Background(), request("请讲讲这个技术的历史"))
	require.NoError(t, err)

	prompt := gen.only(t).Prompt
	assert.NotContains(t, prompt, "FRAGMENT")
	assert.NotContains(t, prompt, explain.DetailedInstruction)
	assert.Contains(t, prompt, "开心")
	assert.Contains(t, prompt, "分治思想")
	assert.Contains(t, prompt, "请讲讲这个技术的历史")
}

func TestOrchestrator_SearchTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		enabled bool
		tools   explain.ToolLister
		want    string
	}{
		{"preferred tool", true, toolList{"search_online", "web_search"}, "web_search"},
		{"legacy fallback", true, toolList{"search_online"}, "search_online"},
		{"nothing available", true, toolList{"calculator"}, ""},
		{"tools disabled", false, toolList{"web_search"}, ""},
		{"registry", true, search.NewRegistry(quiet, "web_search"), "web_search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			cfg.EnableTools = tt.enabled
			gen := &fakeGenerator{reply: "ok"}
			o := newOrchestrator(cfg, staticSource{}, gen, nil, tt.tools)

			_, err := o.Generate(context.Background(), request("随便"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, gen.only(t).SearchTool)
		})
	}
}

func TestOrchestrator_GenerationFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("quota exceeded")
	gen := &fakeGenerator{err: cause}
	o := newOrchestrator(baseConfig(), staticSource{}, gen, nil, nil)

	_, err := o.Generate(context.Background(), request("详细说说"))
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrGeneration)
	assert.ErrorIs(t, err, cause)
	gen.only(t)
}

func TestOrchestrator_EmptyResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: " \n "}
	o := newOrchestrator(baseConfig(), staticSource{}, gen, nil, nil)

	_, err := o.Generate(context.Background(), request("详细说说"))
	assert.ErrorIs(t, err, explain.ErrGeneration)
}

func TestOrchestrator_TruncatesLongOutput(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.MaxTotalLength = 4
	gen := &fakeGenerator{reply: "一二三四五六"}
	o := newOrchestrator(cfg, staticSource{}, gen, nil, nil)

	got, err := o.Generate(context.Background(), request("详细说说"))
	require.NoError(t, err)
	assert.Equal(t, "一二三四...", got)
}

func TestOrchestrator_ContextTimeoutStillGenerates(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "ok"}
	o := explain.NewOrchestrator(quiet, baseConfig(), assembler(staticSource{block: true}, 30*time.Millisecond),
		gen, nil, nil, nil)

	start := time.Now()
	got, err := o.Generate(context.Background(), request("详细说说"))
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Less(t, time.Since(start), time.Second)
	assert.NotContains(t, gen.only(t).Prompt, "以下是最近的聊天记录")
}

func TestOrchestrator_Action(t *testing.T) {
	t.Parallel()

	var a explain.Action = newOrchestrator(baseConfig(), staticSource{}, &fakeGenerator{}, nil, nil)
	assert.Equal(t, "detailed_explanation", a.Name())
	assert.NotEmpty(t, a.Description())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel..."},
		{"你好世界", 2, "你好..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, explain.Truncate(tt.in, tt.limit))
	}
}
