package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h helpHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	sendPlain(ctx, s, h.deps, "help", msg.Chat.ID, h.text())
}

// text is the configured help plus, when mentions can trigger explanations,
// the activation keywords.
func (h helpHandler) text() string {
	cfg := h.deps.Config
	text := withBotName(cfg.Messages.Help, h.deps.botInfo().Username)

	kws := cfg.DetailedExplanation.ActivationKeywords
	if !cfg.DetailedExplanation.Enable || len(kws) == 0 || cfg.Messages.HelpKeywordsFmt == "" {
		return text
	}
	return text + "\n\n" + fmt.Sprintf(cfg.Messages.HelpKeywordsFmt, strings.Join(kws, "、"))
}
