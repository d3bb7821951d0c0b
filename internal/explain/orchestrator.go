package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/persona"
	"github.com/edgard/explainbot/internal/search"
)

const (
	actionName        = "detailed_explanation"
	actionDescription = "生成详细的长文本解释并智能分段发送"
)

// Orchestrator composes the prompt and drives one generation per request.
type Orchestrator struct {
	log       *slog.Logger
	cfg       Config
	history   history.Starter
	generator Generator
	mood      *persona.Adapter
	moods     any
	tools     ToolLister
}

var _ Action = (*Orchestrator)(nil)

// NewOrchestrator creates an Orchestrator. moods may be any value; it is
// checked for persona.MoodProvider on every request. tools may be nil when the
// host exposes no tool registry.
func NewOrchestrator(
	logger *slog.Logger,
	cfg Config,
	historyStarter history.Starter,
	generator Generator,
	mood *persona.Adapter,
	moods any,
	tools ToolLister,
) *Orchestrator {
	if mood == nil {
		mood = persona.NewAdapter(logger, "")
	}
	return &Orchestrator{
		log:       logger.With("component", "explain_orchestrator"),
		cfg:       cfg,
		history:   historyStarter,
		generator: generator,
		mood:      mood,
		moods:     moods,
		tools:     tools,
	}
}

// Name implements Action.
func (o *Orchestrator) Name() string { return actionName }

// Description implements Action.
func (o *Orchestrator) Description() string { return actionDescription }

// Generate builds the prompt for req and returns the generated explanation.
// Every failure other than the generation call itself degrades silently; a
// failed generation is returned wrapped in ErrGeneration and never retried.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (string, error) {
	requestID := uuid.NewString()
	log := o.log.With("request_id", requestID, "chat_id", req.ChatID)
	start := time.Now()

	handle := o.history.Start(ctx, history.Request{
		ChatID:           req.ChatID,
		RequesterID:      req.RequesterID,
		TriggerMessageID: req.TriggerMessageID,
		TriggerReplyToID: req.TriggerReplyToID,
	})

	var (
		mood     string
		fragment string
		matched  bool
		tool     string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mood = o.mood.MoodWithin(gCtx, o.moods, req.ChatID, o.cfg.moodTimeout())
		return nil
	})
	g.Go(func() error {
		fragment, matched = keyword.Match(req.TriggerText, o.cfg.Keywords)
		return nil
	})
	g.Go(func() error {
		tool = o.resolveSearchTool()
		return nil
	})
	_ = g.Wait()

	window := handle.Wait(ctx)
	if window.Err != nil {
		log.WarnContext(ctx, "Proceeding with degraded conversation context", "error", window.Err, "messages", len(window.Messages))
	}

	p := prompt{
		persona: o.cfg.PersonaBase,
		mood:    mood,
		context: history.Format(window.Messages),
		trigger: req.TriggerText,
	}
	switch {
	case !o.cfg.Keywords.Enabled:
	case matched:
		p.framing = fragment
	default:
		p.framing = defaultFraming(o.cfg.ExtraPrompt)
	}

	log.DebugContext(ctx, "Prompt composed",
		"keyword_matched", matched,
		"search_tool", tool,
		"context_messages", len(window.Messages),
		"prep_duration", time.Since(start))

	genCtx := ctx
	if o.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.cfg.GenerationTimeout)
		defer cancel()
	}

	text, err := o.generator.Generate(genCtx, GenerationRequest{
		RequestID:  requestID,
		Prompt:     p.String(),
		SearchTool: tool,
	})
	if err != nil {
		log.ErrorContext(ctx, "Generation failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrGeneration, errors.New("empty response"))
	}
	if out := Truncate(text, o.cfg.MaxTotalLength); out != text {
		log.WarnContext(ctx, "Generated content too long, truncating", "limit", o.cfg.MaxTotalLength)
		text = out
	}

	log.InfoContext(ctx, "Explanation generated", "length", len([]rune(text)), "duration", time.Since(start))
	return text, nil
}

func (o *Orchestrator) resolveSearchTool() string {
	if !o.cfg.EnableTools || o.tools == nil {
		return ""
	}
	name, ok := search.Resolve(o.tools.AvailableTools(), o.cfg.Search)
	if !ok {
		return ""
	}
	return name
}
