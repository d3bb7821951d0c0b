package handlers

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/explainbot/internal/explain"
	"github.com/edgard/explainbot/internal/plaintext"
	"github.com/edgard/explainbot/internal/segment"
)

// NewExplainHandler returns a handler for /explain <topic>. Replying to a
// message with a bare /explain explains the replied-to text.
func NewExplainHandler(deps HandlerDeps) bot.HandlerFunc {
	return explainHandler{deps}.Handle
}

type explainHandler struct {
	deps HandlerDeps
}

func (h explainHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h explainHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "explain")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Explain handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	// commands skip the default handler, so record them here to keep them
	// available as reply-chain anchors
	if text := messageText(msg); strings.TrimSpace(text) != "" {
		SaveMessageWithRetry(ctx, h.deps, recordFromMessage(msg, text), "explain command")
	}

	if !h.deps.Config.DetailedExplanation.Enable {
		h.reply(ctx, s, msg, h.deps.Config.Messages.ExplainDisabledMsg)
		return
	}

	topic := commandArgs(msg.Text)
	if topic == "" && msg.ReplyToMessage != nil {
		topic = strings.TrimSpace(messageText(msg.ReplyToMessage))
	}
	if topic == "" {
		log.DebugContext(ctx, "Explain command without topic", "chat_id", chatID)
		h.reply(ctx, s, msg, h.deps.Config.Messages.ExplainUsageMsg)
		return
	}

	log.InfoContext(ctx, "Handling /explain command", "chat_id", chatID, "user_id", msg.From.ID)
	runExplain(ctx, s, h.deps, msg, topic)
}

func (h explainHandler) reply(ctx context.Context, s Sender, msg *models.Message, text string) {
	if text == "" {
		return
	}
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
	}
}

// runExplain generates the explanation for topic and delivers it in
// segments. Failures are reported to the chat with a short message.
func runExplain(ctx context.Context, s Sender, deps HandlerDeps, msg *models.Message, topic string) {
	chatID := msg.Chat.ID
	log := deps.Logger.With("handler", "explain", "chat_id", chatID, "message_id", msg.ID)
	cfg := deps.Config

	if deps.Action == nil {
		log.ErrorContext(ctx, "No explanation action configured")
		_, _ = s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: cfg.Messages.ErrorGeneralMsg})
		return
	}

	if cfg.DetailedExplanation.ShowStartHint && cfg.DetailedExplanation.StartHintMessage != "" {
		if _, err := s.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          chatID,
			Text:            cfg.DetailedExplanation.StartHintMessage,
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); err != nil {
			log.WarnContext(ctx, "Failed to send start hint", "error", err)
		}
	}

	_, _ = s.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	req := explain.Request{
		ChatID:           chatID,
		RequesterID:      msg.From.ID,
		TriggerMessageID: int64(msg.ID),
		TriggerText:      topic,
	}
	if msg.ReplyToMessage != nil {
		req.TriggerReplyToID = int64(msg.ReplyToMessage.ID)
	}

	text, err := deps.Action.Generate(ctx, req)
	if err != nil {
		log.ErrorContext(ctx, "Detailed explanation failed", "action", deps.Action.Name(), "error", err)
		if _, sendErr := s.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          chatID,
			Text:            cfg.Messages.GenerationFailedMsg,
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send generation failure message", "error", sendErr)
		}
		return
	}

	if cfg.DetailedExplanation.StripMarkdown {
		text = plaintext.FromMarkdown(text)
	}
	segments := segment.Split(text, cfg.SegmentOptions())
	log.DebugContext(ctx, "Explanation segmented", "length", len([]rune(text)), "segments", len(segments))
	deliverSegments(ctx, s, deps, chatID, msg.ID, segments)
}

// commandArgs returns the text after the leading command token.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// messageText prefers the text and falls back to a media caption.
func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}
