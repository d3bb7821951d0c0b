// Package handlers holds the Telegram command and message handlers, their
// registration table and the admin gate.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets commands through only for the configured admin. Everyone
// else gets the unauthorized message as a reply. Updates without a message
// sender pass through untouched.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.From == nil || isAdmin(deps, msg.From.ID) {
				next(ctx, b, update)
				return
			}
			deny(ctx, b, deps, msg)
		}
	}
}

func deny(ctx context.Context, s Sender, deps HandlerDeps, msg *models.Message) {
	log := deps.Logger.With("middleware", "admin_only", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	if deps.Config.Telegram.AdminUserID == 0 {
		log.WarnContext(ctx, "Admin command refused: no admin configured")
	} else {
		log.WarnContext(ctx, "Admin command refused")
	}

	if deps.Config.Messages.ErrorUnauthorizedMsg == "" {
		return
	}
	_, err := s.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            deps.Config.Messages.ErrorUnauthorizedMsg,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err)
	}
}

func isAdmin(deps HandlerDeps, userID int64) bool {
	return userID != 0 && userID == deps.Config.Telegram.AdminUserID
}
