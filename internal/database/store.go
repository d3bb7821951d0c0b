package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/persona"
)

// maxFetchLimit caps a single history query.
const maxFetchLimit = 500

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	history.Source
	history.MessageGetter
	persona.MoodProvider

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a message, or refreshes its content when the same
	// Telegram message is seen again (edits).
	SaveMessage(ctx context.Context, message *Message) error

	// SetChatMood stores the mood for a chat, replacing any previous one.
	SetChatMood(ctx context.Context, chatID int64, mood string, updatedBy int64) error

	// DeleteMessagesBefore removes messages older than cutoff.
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimChatHistory keeps only the newest keep messages of every chat.
	TrimChatHistory(ctx context.Context, keep int) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage upserts a message keyed by chat and Telegram message ID.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.ChatID == 0 {
		return fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.MessageID == 0 {
		return fmt.Errorf("message must have a non-zero message_id")
	}
	if message.UserID == 0 {
		return fmt.Errorf("message must have a non-zero user_id")
	}
	if strings.TrimSpace(message.Content) == "" {
		return fmt.Errorf("message must have non-empty content")
	}
	if message.Timestamp.IsZero() {
		return fmt.Errorf("message must have a non-zero timestamp")
	}

	now := time.Now().UTC()
	message.Timestamp = message.Timestamp.UTC()
	message.CreatedAt = now
	message.UpdatedAt = now

	query := `
        INSERT INTO messages (chat_id, message_id, user_id, content, reply_to_message_id, timestamp, created_at, updated_at)
        VALUES (:chat_id, :message_id, :user_id, :content, :reply_to_message_id, :timestamp, :created_at, :updated_at)
        ON CONFLICT (chat_id, message_id) DO UPDATE SET
            content = excluded.content,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, message); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"chat_id", message.ChatID, "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to save message (chat %d, message %d): %w", message.ChatID, message.MessageID, err)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"chat_id", message.ChatID, "user_id", message.UserID, "message_id", message.MessageID)
	return nil
}

// RecentMessages returns up to limit messages of chatID, newest first. A
// positive beforeID restricts the result to older Telegram message IDs.
func (s *sqlxStore) RecentMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]history.Message, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if limit <= 0 {
		return []history.Message{}, nil
	}
	if limit > maxFetchLimit {
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "chat_id", chatID, "capped_limit", maxFetchLimit)
		limit = maxFetchLimit
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
        SELECT id, chat_id, message_id, user_id, content, reply_to_message_id, timestamp, created_at, updated_at
        FROM messages
        WHERE chat_id = ? AND (? <= 0 OR message_id < ?)
        ORDER BY message_id DESC
        LIMIT ?;
    `

	var rows []Message
	err := s.db.SelectContext(ctx, &rows, query, chatID, beforeID, beforeID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages", "chat_id", chatID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "chat_id", chatID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for chat %d: %w", chatID, err)
	}

	out := make([]history.Message, len(rows))
	for i, m := range rows {
		out[i] = m.toHistory()
	}
	s.logger.DebugContext(ctx, "Fetched recent messages successfully", "chat_id", chatID, "count", len(out))
	return out, nil
}

// MessageByID loads one message of chatID by its Telegram message ID.
func (s *sqlxStore) MessageByID(ctx context.Context, chatID, messageID int64) (history.Message, bool, error) {
	var m Message
	err := s.db.GetContext(ctx, &m, `
        SELECT id, chat_id, message_id, user_id, content, reply_to_message_id, timestamp, created_at, updated_at
        FROM messages
        WHERE chat_id = ? AND message_id = ?;
    `, chatID, messageID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return history.Message{}, false, nil
	case err != nil:
		return history.Message{}, false, fmt.Errorf("failed to get message %d of chat %d: %w", messageID, chatID, err)
	}
	return m.toHistory(), true, nil
}

// CurrentMood returns the stored mood of chatID, or "" when none is set.
func (s *sqlxStore) CurrentMood(ctx context.Context, chatID int64) (string, error) {
	var mood ChatMood
	err := s.db.GetContext(ctx, &mood, `SELECT chat_id, mood, updated_by, updated_at FROM chat_moods WHERE chat_id = ?`, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to get mood for chat %d: %w", chatID, err)
	}
	return mood.Mood, nil
}

// SetChatMood upserts the chat's mood.
func (s *sqlxStore) SetChatMood(ctx context.Context, chatID int64, mood string, updatedBy int64) error {
	mood = strings.TrimSpace(mood)
	if chatID == 0 {
		return fmt.Errorf("chat_id cannot be zero")
	}
	if mood == "" {
		return fmt.Errorf("mood cannot be empty")
	}

	query := `
        INSERT INTO chat_moods (chat_id, mood, updated_by, updated_at)
        VALUES (:chat_id, :mood, :updated_by, :updated_at)
        ON CONFLICT (chat_id) DO UPDATE SET
            mood = excluded.mood,
            updated_by = excluded.updated_by,
            updated_at = excluded.updated_at;
    `
	record := ChatMood{ChatID: chatID, Mood: mood, UpdatedBy: updatedBy, UpdatedAt: time.Now().UTC()}
	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		s.logger.ErrorContext(ctx, "Error saving chat mood", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to save mood for chat %d: %w", chatID, err)
	}

	s.logger.InfoContext(ctx, "Chat mood updated", "chat_id", chatID, "updated_by", updatedBy)
	return nil
}

// DeleteMessagesBefore removes messages with a timestamp before cutoff.
func (s *sqlxStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting old messages", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to delete messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// TrimChatHistory deletes everything but the newest keep messages per chat.
func (s *sqlxStore) TrimChatHistory(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("keep must be positive, got %d", keep)
	}

	query := `
        DELETE FROM messages WHERE id IN (
            SELECT id FROM (
                SELECT id, ROW_NUMBER() OVER (PARTITION BY chat_id ORDER BY message_id DESC) AS rn
                FROM messages
            ) WHERE rn > ?
        );
    `
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error trimming chat history", "keep", keep, "error", err)
		return 0, fmt.Errorf("failed to trim chat history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RunSQLMaintenance rebuilds the database file with VACUUM and refreshes
// the query planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("maintenance not started: %w", err)
	}

	for _, stmt := range []string{"VACUUM;", "PRAGMA optimize;"} {
		started := time.Now()
		// VACUUM must run outside a transaction
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.ErrorContext(ctx, "Database maintenance statement failed", "statement", stmt, "error", err)
			return fmt.Errorf("run %q: %w", stmt, err)
		}
		s.logger.DebugContext(ctx, "Database maintenance statement done", "statement", stmt, "elapsed", time.Since(started))
	}
	return nil
}
