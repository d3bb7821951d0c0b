package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/explainbot/internal/database"
)

const (
	sendMessageTimeout = 10 * time.Second
	dbSaveTimeout      = 5 * time.Second
	saveRetryBackoff   = 500 * time.Millisecond
)

// progressPrefix numbers a segment as "(i/n) " when there is more than one.
func progressPrefix(i, n int, show bool) string {
	if !show || n <= 1 {
		return ""
	}
	return fmt.Sprintf("(%d/%d) ", i+1, n)
}

// deliverSegments sends segments in order, the first one as a reply to the
// trigger, pausing send_delay between them. A failed segment is logged and
// skipped. It returns how many segments were sent.
func deliverSegments(ctx context.Context, s Sender, deps HandlerDeps, chatID int64, replyTo int, segments []string) int {
	log := deps.Logger.With("handler", "delivery", "chat_id", chatID)
	cfg := deps.Config.DetailedExplanation

	sent := 0
	for i, seg := range segments {
		if i > 0 && cfg.SendDelay > 0 {
			select {
			case <-time.After(cfg.SendDelay):
			case <-ctx.Done():
				log.WarnContext(ctx, "Delivery cancelled", "sent", sent, "total", len(segments), "error", ctx.Err())
				return sent
			}
		}

		params := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   progressPrefix(i, len(segments), cfg.ShowProgress) + seg,
		}
		if i == 0 && replyTo > 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		msg, err := s.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			log.ErrorContext(ctx, "Failed to send segment", "segment", i+1, "total", len(segments), "error", err)
			continue
		}
		sent++

		if msg != nil {
			saveBotReply(ctx, deps, chatID, msg, replyTo, params.Text)
		}
	}

	log.InfoContext(ctx, "Delivered explanation", "sent", sent, "total", len(segments))
	return sent
}

// saveBotReply records the bot's own message so later context windows see it.
func saveBotReply(ctx context.Context, deps HandlerDeps, chatID int64, sent *models.Message, replyTo int, text string) {
	botID := deps.botInfo().ID
	if botID == 0 {
		deps.Logger.WarnContext(ctx, "Invalid botID (0), skipping saving bot reply", "chat_id", chatID)
		return
	}

	ts := time.Now().UTC()
	if sent.Date > 0 {
		ts = time.Unix(int64(sent.Date), 0)
	}
	SaveMessageWithRetry(ctx, deps, &database.Message{
		ChatID:           chatID,
		MessageID:        int64(sent.ID),
		UserID:           botID,
		Content:          text,
		ReplyToMessageID: int64(replyTo),
		Timestamp:        ts,
	}, "bot reply")
}

// recordFromMessage converts an incoming Telegram message into a store row.
func recordFromMessage(msg *models.Message, text string) *database.Message {
	var replyTo int64
	if msg.ReplyToMessage != nil {
		replyTo = int64(msg.ReplyToMessage.ID)
	}
	return &database.Message{
		ChatID:           msg.Chat.ID,
		MessageID:        int64(msg.ID),
		UserID:           msg.From.ID,
		Content:          text,
		ReplyToMessageID: replyTo,
		Timestamp:        time.Unix(int64(msg.Date), 0),
	}
}

// SaveMessageWithRetry attempts to save a message to the database with retry logic.
func SaveMessageWithRetry(ctx context.Context, deps HandlerDeps, msg *database.Message, msgType string) {
	log := deps.Logger.With("handler", "store")
	const maxRetries = 3
	var err error

	for i := range maxRetries {
		if ctx.Err() != nil {
			log.WarnContext(ctx, fmt.Sprintf("Context cancelled, aborting %s save attempts", msgType),
				"error", ctx.Err(), "chat_id", msg.ChatID, "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
		err = deps.Store.SaveMessage(dbCtx, msg)
		cancel()

		if err == nil {
			log.DebugContext(ctx, fmt.Sprintf("%s saved successfully", msgType), "message_id", msg.MessageID, "chat_id", msg.ChatID)
			return
		}

		log.ErrorContext(ctx, fmt.Sprintf("Failed to save %s, retrying", msgType), "error", err, "chat_id", msg.ChatID, "attempt", i+1)

		select {
		case <-time.After(time.Duration(i+1) * saveRetryBackoff):
		case <-ctx.Done():
		}
	}

	log.ErrorContext(ctx, fmt.Sprintf("Failed to save %s after %d retries", msgType, maxRetries), "last_error", err, "chat_id", msg.ChatID)
}
