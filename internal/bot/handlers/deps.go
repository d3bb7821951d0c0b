package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/database"
	"github.com/edgard/explainbot/internal/explain"
)

// MoodInvalidator drops a cached mood after it changes.
type MoodInvalidator interface {
	Invalidate(chatID int64)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Action explain.Action
	// Moods is optional.
	Moods MoodInvalidator
}

// Sender is the part of the Telegram client the handlers use.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

var _ Sender = (*bot.Bot)(nil)

// botInfo returns the bot's own account, or an empty user before getMe ran.
func (d HandlerDeps) botInfo() models.User {
	if d.Config == nil || d.Config.Telegram.BotInfo == nil {
		return models.User{}
	}
	return *d.Config.Telegram.BotInfo
}
