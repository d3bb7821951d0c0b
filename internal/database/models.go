package database

import (
	"time"

	"github.com/edgard/explainbot/internal/history"
)

// Message is a stored Telegram group message. MessageID is Telegram's
// per-chat message ID, which reply references point at.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID           int64     `db:"chat_id"`
	MessageID        int64     `db:"message_id"`
	UserID           int64     `db:"user_id"`
	Content          string    `db:"content"`
	ReplyToMessageID int64     `db:"reply_to_message_id"`
	Timestamp        time.Time `db:"timestamp"`
}

// toHistory converts a row into the read-only snapshot the assembler uses.
func (m Message) toHistory() history.Message {
	return history.Message{
		ID:        m.MessageID,
		ChatID:    m.ChatID,
		SenderID:  m.UserID,
		Text:      m.Content,
		Timestamp: m.Timestamp,
		ReplyToID: m.ReplyToMessageID,
	}
}

// ChatMood is the mood an admin set for one chat.
type ChatMood struct {
	ChatID    int64     `db:"chat_id"`
	Mood      string    `db:"mood"`
	UpdatedBy int64     `db:"updated_by"`
	UpdatedAt time.Time `db:"updated_at"`
}
