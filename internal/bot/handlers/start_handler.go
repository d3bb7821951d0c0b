package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h startHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	welcome := withBotName(h.deps.Config.Messages.Welcome, h.deps.botInfo().Username)
	sendPlain(ctx, s, h.deps, "start", msg.Chat.ID, welcome)
}

// sendPlain sends text to chatID, logging failures under the handler name.
func sendPlain(ctx context.Context, s Sender, deps HandlerDeps, handler string, chatID int64, text string) {
	log := deps.Logger.With("handler", handler, "chat_id", chatID)
	if text == "" {
		log.DebugContext(ctx, "Nothing to send")
		return
	}
	if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}

// withBotName replaces the @botname placeholder in user-facing text.
func withBotName(text, username string) string {
	if username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+username)
}
