package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewMessageHandler returns the default handler. It records every text
// message into the history store and starts a detailed explanation when the
// bot is addressed together with an activation keyword.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h messageHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg, edited := update.Message, false
	if msg == nil {
		msg, edited = update.EditedMessage, true
	}
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update without message or sender", "update_id", update.ID)
		return
	}

	text := messageText(msg)
	if strings.TrimSpace(text) == "" {
		return
	}

	SaveMessageWithRetry(ctx, h.deps, recordFromMessage(msg, text), "incoming message")

	cfg := h.deps.Config.DetailedExplanation
	if edited || !cfg.Enable {
		return
	}

	me := h.deps.botInfo()
	if !addressedToBot(msg, me) {
		return
	}
	// keywords are matched without the mention so the bot's own username
	// cannot activate
	topic := stripMention(text, me.Username)
	if topic == "" {
		return
	}
	if !hasActivationKeyword(topic, cfg.ActivationKeywords) {
		log.DebugContext(ctx, "Bot addressed without activation keyword", "chat_id", msg.Chat.ID)
		return
	}

	log.InfoContext(ctx, "Detailed explanation activated", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	runExplain(ctx, s, h.deps, msg, topic)
}

// addressedToBot reports whether msg mentions the bot by @username or
// replies to one of its messages.
func addressedToBot(msg *models.Message, me models.User) bool {
	if msg == nil {
		return false
	}
	if me.ID != 0 && msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == me.ID {
		return true
	}
	if me.Username == "" {
		return false
	}
	return mentionPattern(me.Username).MatchString(messageText(msg))
}

// hasActivationKeyword reports whether text contains one of keywords. An
// empty keyword list activates on every mention.
func hasActivationKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// stripMention removes @username mentions and surrounding whitespace.
func stripMention(text, username string) string {
	if username != "" {
		text = mentionPattern(username).ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}

func mentionPattern(username string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(username) + `\b`)
}
