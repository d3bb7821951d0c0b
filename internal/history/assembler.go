package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Result is the outcome of an assembly. Messages are always usable, even when
// Err reports a timeout or an unreachable source.
type Result struct {
	Messages []Message
	Err      error
}

// Handle is the caller's view of a running assembly.
type Handle struct {
	deadline time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	anchors []Message

	// written by the worker before done is closed
	final []Message
	err   error

	once   sync.Once
	result Result
}

func resolvedHandle(r Result) *Handle {
	h := &Handle{done: make(chan struct{}), cancel: func() {}}
	close(h.done)
	h.once.Do(func() { h.result = r })
	return h
}

func (h *Handle) publishAnchors(anchors []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.anchors = anchors
}

func (h *Handle) resolvedAnchors() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.anchors))
	copy(out, h.anchors)
	return out
}

// Done is closed when the background work finishes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until assembly completes, the timeout budget set at Start
// elapses, or ctx is done. On timeout it returns the anchors resolved so far
// and abandons the worker. Wait is safe to call more than once.
func (h *Handle) Wait(ctx context.Context) Result {
	h.once.Do(func() {
		timer := time.NewTimer(time.Until(h.deadline))
		defer timer.Stop()

		select {
		case <-h.done:
			h.result = Result{Messages: h.final, Err: h.err}
			if h.final == nil {
				h.result.Messages = []Message{}
			}
			h.cancel()
			return
		case <-timer.C:
			h.result = Result{Err: ErrLookupTimeout}
		case <-ctx.Done():
			h.result = Result{Err: fmt.Errorf("%w: %w", ErrLookupTimeout, ctx.Err())}
		}
		h.cancel()
		h.result.Messages = h.resolvedAnchors()
	})
	return h.result
}

// Starter begins a background assembly.
type Starter interface {
	Start(ctx context.Context, req Request) *Handle
}

// Assembler builds context windows from a Source.
type Assembler struct {
	source  Source
	cfg     Config
	weights Weights
	log     *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) Option {
	return func(a *Assembler) {
		a.weights = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler creates an Assembler reading from source.
func NewAssembler(source Source, cfg Config, opts ...Option) *Assembler {
	a := &Assembler{
		source:  source,
		cfg:     cfg,
		weights: DefaultWeights,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "context_assembler")
	return a
}

// Start launches assembly in the background and returns immediately.
func (a *Assembler) Start(ctx context.Context, req Request) *Handle {
	if !a.cfg.Enabled || a.cfg.MaxMessages <= 0 || a.source == nil {
		return resolvedHandle(Result{Messages: []Message{}})
	}

	// the worker is owned by the handle, not by the caller's cancellation
	budget := a.cfg.budget()
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	h := &Handle{
		deadline: time.Now().Add(budget),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go a.run(workCtx, req, h)
	return h
}

// Assemble is the blocking form of Start followed by Wait.
func (a *Assembler) Assemble(ctx context.Context, req Request) Result {
	return a.Start(ctx, req).Wait(ctx)
}

func (a *Assembler) run(ctx context.Context, req Request, h *Handle) {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			a.log.ErrorContext(ctx, "History assembly panicked", "chat_id", req.ChatID, "panic", r)
			h.final, h.err = []Message{}, fmt.Errorf("history assembly panicked: %v", r)
		}
	}()

	start := time.Now()
	limit := a.cfg.FetchLimit()

	raw, err := a.source.RecentMessages(ctx, req.ChatID, limit, req.TriggerMessageID)
	if err != nil {
		if ctx.Err() != nil {
			h.final, h.err = []Message{}, fmt.Errorf("%w: %w", ErrLookupTimeout, err)
			return
		}
		a.log.WarnContext(ctx, "History source unavailable, continuing without context", "chat_id", req.ChatID, "error", err)
		h.final, h.err = []Message{}, fmt.Errorf("fetch history: %w", err)
		return
	}

	window := make([]Message, 0, len(raw))
	for _, m := range raw {
		if m.ChatID != 0 && m.ChatID != req.ChatID {
			continue
		}
		if req.TriggerMessageID != 0 && m.ID == req.TriggerMessageID {
			continue
		}
		window = append(window, m)
	}
	SortChronological(window)
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	window = Deduplicate(window)

	n := a.cfg.anchorCount()
	if n > len(window) {
		n = len(window)
	}
	split := len(window) - n
	anchors := window[split:]
	h.publishAnchors(anchors)

	candidates := window[:split]
	if root, ok := a.replyTarget(ctx, req, window); ok {
		candidates = append([]Message{root}, candidates...)
		window = append([]Message{root}, window...)
	}

	if ctx.Err() != nil {
		h.final, h.err = append([]Message(nil), anchors...), fmt.Errorf("%w: %w", ErrLookupTimeout, ctx.Err())
		return
	}

	sc := newScorer(a.weights, req, window)
	picked := sc.selectTop(candidates, len(window), a.cfg.MaxMessages-n)

	final := make([]Message, 0, len(anchors)+len(picked))
	final = append(final, picked...)
	final = append(final, anchors...)
	SortChronological(final)

	a.log.DebugContext(ctx, "Assembled conversation context",
		"chat_id", req.ChatID,
		"fetched", len(raw),
		"deduplicated", len(window),
		"anchors", len(anchors),
		"selected", len(final),
		"duration", time.Since(start))

	h.final = final
}

// replyTarget loads the message the trigger replies to when the source can
// look messages up and the window does not already hold it. The target is
// older than everything fetched, so it goes in front of the window.
func (a *Assembler) replyTarget(ctx context.Context, req Request, window []Message) (Message, bool) {
	if req.TriggerReplyToID == 0 {
		return Message{}, false
	}
	getter, ok := a.source.(MessageGetter)
	if !ok {
		return Message{}, false
	}
	for _, m := range window {
		if m.ID == req.TriggerReplyToID {
			return Message{}, false
		}
	}

	m, found, err := getter.MessageByID(ctx, req.ChatID, req.TriggerReplyToID)
	if err != nil {
		if ctx.Err() == nil {
			a.log.DebugContext(ctx, "Reply target lookup failed", "chat_id", req.ChatID, "message_id", req.TriggerReplyToID, "error", err)
		}
		return Message{}, false
	}
	if !found || (m.ChatID != 0 && m.ChatID != req.ChatID) || strings.TrimSpace(m.Text) == "" {
		return Message{}, false
	}
	if len(window) > 0 && !m.Timestamp.Before(window[0].Timestamp) && m.ID > window[0].ID {
		return Message{}, false
	}
	return m, true
}
