package handlers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/explainbot/internal/persona"
)

// maxMoodRunes bounds a stored mood; it is spliced into every prompt.
const maxMoodRunes = 32

// NewMoodHandler returns a handler for /mood. Without arguments it shows the
// chat's current mood; with arguments it stores a new one.
func NewMoodHandler(deps HandlerDeps) bot.HandlerFunc {
	return moodHandler{deps}.Handle
}

type moodHandler struct {
	deps HandlerDeps
}

func (h moodHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h moodHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "mood")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Mood handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID
	msgs := h.deps.Config.Messages

	var text string
	mood := commandArgs(msg.Text)
	if mood == "" {
		adapter := persona.NewAdapter(log, h.deps.Config.Persona.DefaultMood)
		current := adapter.MoodWithin(ctx, h.deps.Store, chatID, h.deps.Config.Persona.MoodTimeout)
		text = fmt.Sprintf(msgs.MoodCurrentFmt, current)
	} else if utf8.RuneCountInString(mood) > maxMoodRunes {
		text = msgs.MoodUsageMsg
	} else if err := h.deps.Store.SetChatMood(ctx, chatID, mood, msg.From.ID); err != nil {
		log.ErrorContext(ctx, "Failed to set mood", "error", err, "chat_id", chatID)
		text = msgs.ErrorGeneralMsg
	} else {
		if h.deps.Moods != nil {
			h.deps.Moods.Invalidate(chatID)
		}
		log.InfoContext(ctx, "Mood updated", "chat_id", chatID, "user_id", msg.From.ID)
		text = fmt.Sprintf(msgs.MoodSetFmt, mood)
	}

	sendPlain(ctx, s, h.deps, "mood", chatID, text)
}
