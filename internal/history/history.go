// Package history assembles a bounded, relevance-ranked window of recent
// conversation for a generation request. Assembly runs in the background and
// the caller waits on a Handle bounded by a timeout budget.
package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrLookupTimeout is reported when assembly exceeds its budget.
var ErrLookupTimeout = errors.New("context lookup timed out")

// Message is a read-only snapshot of one chat message.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Text      string
	Timestamp time.Time
	// ReplyToID references another message's ID, 0 when absent.
	ReplyToID int64
}

// Source is the read-only conversation history collaborator.
// beforeID bounds the query to messages with a smaller ID when positive.
type Source interface {
	RecentMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]Message, error)
}

// MessageGetter is an optional Source capability. When the trigger replies to
// a message that fell outside the fetched window, the assembler loads it by
// ID so the reply chain still has its root.
type MessageGetter interface {
	MessageByID(ctx context.Context, chatID, messageID int64) (Message, bool, error)
}

// DefaultTimeout is the assembly budget used when Config.Timeout is not
// positive.
const DefaultTimeout = 3 * time.Second

// Config sizes the context window.
type Config struct {
	Enabled             bool
	MaxMessages         int
	AnchorTailCount     int
	FetchHeadroomFactor float64
	Timeout             time.Duration
}

// Request identifies the trigger the window is assembled for.
type Request struct {
	ChatID      int64
	RequesterID int64
	// TriggerMessageID is excluded from the window and anchors reply chains.
	TriggerMessageID int64
	TriggerReplyToID int64
}

// FetchLimit is the candidate superset size requested from the source.
func (c Config) FetchLimit() int {
	if c.MaxMessages <= 0 {
		return 0
	}
	factor := c.FetchHeadroomFactor
	if factor < 1 || math.IsNaN(factor) {
		factor = 1
	}
	return int(math.Ceil(float64(c.MaxMessages) * factor))
}

func (c Config) budget() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) anchorCount() int {
	n := c.AnchorTailCount
	if n < 0 {
		n = 0
	}
	if n > c.MaxMessages {
		n = c.MaxMessages
	}
	return n
}

// SortChronological orders messages by timestamp, then ID.
func SortChronological(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// Deduplicate collapses runs of consecutive messages from the same sender
// with near-identical text, keeping the latest of each run. Input must be
// chronological; the result is a new slice.
func Deduplicate(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	lastKey := ""
	for _, m := range msgs {
		key := normalize(m.Text)
		if n := len(out); n > 0 && out[n-1].SenderID == m.SenderID && key == lastKey {
			out[n-1] = m
			continue
		}
		out = append(out, m)
		lastKey = key
	}
	return out
}

func normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".!?。！？~ ")
}

// Format renders messages as one line each, the way the generation prompt
// expects them.
func Format(msgs []Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] UID %d: %s", m.Timestamp.Format("2006-01-02 15:04:05"), m.SenderID, m.Text)
	}
	return sb.String()
}
