// Package explain turns a short trigger phrase into a long-form explanation.
// It composes the generation prompt from the persona, the current mood, a
// keyword-selected framing and the recent conversation, then makes a single
// call to the generation backend.
package explain

import (
	"context"
	"errors"
	"time"

	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/search"
)

// ErrGeneration is the only failure Generate reports to callers.
var ErrGeneration = errors.New("generation failed")

// Request is one trigger to explain.
type Request struct {
	ChatID           int64
	RequesterID      int64
	TriggerMessageID int64
	// TriggerReplyToID is the message the trigger replies to, 0 if none.
	TriggerReplyToID int64
	TriggerText      string
}

// GenerationRequest is what the backend receives.
type GenerationRequest struct {
	RequestID string
	Prompt    string
	// SearchTool names the search augmentation to enable, empty for none.
	SearchTool string
}

// Generator is the external text generation backend.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ToolLister exposes the tools the host currently has available.
type ToolLister interface {
	AvailableTools() []string
}

// Action is the capability the host registers and dispatches to.
type Action interface {
	Name() string
	Description() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Config holds everything Generate needs besides its collaborators.
type Config struct {
	PersonaBase       string
	Keywords          keyword.Config
	Search            search.Config
	EnableTools       bool
	ExtraPrompt       string
	MaxTotalLength    int
	GenerationTimeout time.Duration
	MoodTimeout       time.Duration
}

// DefaultMoodTimeout bounds the mood lookup when Config.MoodTimeout is unset.
const DefaultMoodTimeout = time.Second

func (c Config) moodTimeout() time.Duration {
	if c.MoodTimeout <= 0 {
		return DefaultMoodTimeout
	}
	return c.MoodTimeout
}
