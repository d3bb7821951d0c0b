// Package persona resolves the bot's current mood text, degrading to a fixed
// default whenever the host has no mood capability or it fails.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultMood is used whenever no mood can be obtained.
const DefaultMood = "平静"

// ErrCapabilityUnavailable reports a missing or failing mood capability.
var ErrCapabilityUnavailable = errors.New("mood capability unavailable")

// MoodProvider is the optional capability a host may offer.
type MoodProvider interface {
	CurrentMood(ctx context.Context, chatID int64) (string, error)
}

// Lookup checks provider for the mood capability and queries it.
// Any failure is reported as ErrCapabilityUnavailable.
func Lookup(ctx context.Context, provider any, chatID int64) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("%w: no provider", ErrCapabilityUnavailable)
	}
	mp, ok := provider.(MoodProvider)
	if !ok {
		return "", fmt.Errorf("%w: %T does not provide moods", ErrCapabilityUnavailable, provider)
	}

	mood, err := mp.CurrentMood(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return "", fmt.Errorf("%w: empty mood", ErrCapabilityUnavailable)
	}
	return mood, nil
}

// Adapter turns an optional provider into mood text.
type Adapter struct {
	log         *slog.Logger
	defaultMood string
}

// NewAdapter creates an Adapter. An empty defaultMood selects DefaultMood.
func NewAdapter(logger *slog.Logger, defaultMood string) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(defaultMood) == "" {
		defaultMood = DefaultMood
	}
	return &Adapter{
		log:         logger.With("component", "persona_mood"),
		defaultMood: defaultMood,
	}
}

// Mood returns the provider's mood for chatID, or the default mood.
func (a *Adapter) Mood(ctx context.Context, provider any, chatID int64) string {
	mood, err := Lookup(ctx, provider, chatID)
	if err != nil {
		a.log.DebugContext(ctx, "Using default mood", "chat_id", chatID, "reason", err)
		return a.defaultMood
	}
	return mood
}

// MoodWithin is Mood bounded by timeout. A provider that has not answered in
// time yields the default mood; its lookup is cancelled and left to finish on
// its own. A non-positive timeout means no bound.
func (a *Adapter) MoodWithin(ctx context.Context, provider any, chatID int64, timeout time.Duration) string {
	if timeout <= 0 {
		return a.Mood(ctx, provider, chatID)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan string, 1)
	go func() {
		result <- a.Mood(ctx, provider, chatID)
	}()

	select {
	case mood := <-result:
		return mood
	case <-ctx.Done():
		a.log.WarnContext(ctx, "Mood lookup timed out, using default mood", "chat_id", chatID, "timeout", timeout)
		return a.Default()
	}
}

// Default returns the fallback mood text.
func (a *Adapter) Default() string {
	return a.defaultMood
}

// CachedProvider memoizes successful mood lookups per chat.
type CachedProvider struct {
	next  MoodProvider
	cache *cache.Cache
}

// NewCachedProvider wraps next with a TTL cache. A non-positive ttl disables caching.
func NewCachedProvider(next MoodProvider, ttl time.Duration) *CachedProvider {
	c := &CachedProvider{next: next}
	if ttl > 0 {
		c.cache = cache.New(ttl, 10*time.Minute)
	}
	return c
}

// CurrentMood implements MoodProvider.
func (c *CachedProvider) CurrentMood(ctx context.Context, chatID int64) (string, error) {
	if c.cache == nil {
		return c.next.CurrentMood(ctx, chatID)
	}

	key := strconv.FormatInt(chatID, 10)
	if v, found := c.cache.Get(key); found {
		return v.(string), nil
	}

	mood, err := c.next.CurrentMood(ctx, chatID)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, mood)
	return mood, nil
}

// Invalidate drops the cached mood for chatID.
func (c *CachedProvider) Invalidate(chatID int64) {
	if c.cache == nil {
		return
	}
	c.cache.Delete(strconv.FormatInt(chatID, 10))
}
