package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/bot/handlers"
)

type registration struct {
	pattern string
	handler bot.HandlerFunc
}

type fakeRegistrar struct{ got []registration }

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.got = append(f.got, registration{pattern, h})
	return pattern
}

type fakePublisher struct {
	params *bot.SetMyCommandsParams
	err    error
}

func (f *fakePublisher) SetMyCommands(_ context.Context, p *bot.SetMyCommandsParams) (bool, error) {
	f.params = p
	return f.err == nil, f.err
}

func tracing(name string, trace *[]string) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, u *models.Update) {
			*trace = append(*trace, name)
			next(ctx, b, u)
		}
	}
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()

	var trace []string
	reg := &fakeRegistrar{}
	hs := map[string]handlers.RegisteredHandler{
		"/b": {Pattern: "b", Handler: func(context.Context, *bot.Bot, *models.Update) { trace = append(trace, "handler") },
			Middleware: []bot.Middleware{tracing("outer", &trace), tracing("inner", &trace)}},
		"/a":   {Pattern: "a", Handler: func(context.Context, *bot.Bot, *models.Update) {}},
		"/nil": {Pattern: "nil"},
	}

	require.NoError(t, RegisterHandlers(reg, slog.New(slog.NewTextHandler(io.Discard, nil)), hs))
	require.Len(t, reg.got, 2)
	assert.Equal(t, "a", reg.got[0].pattern)
	assert.Equal(t, "b", reg.got[1].pattern)

	reg.got[1].handler(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)

	assert.NoError(t, RegisterHandlers(reg, nil, nil))
	assert.Error(t, RegisterHandlers(nil, nil, hs))
}

func TestPublishCommands(t *testing.T) {
	t.Parallel()

	p := &fakePublisher{}
	require.NoError(t, PublishCommands(context.Background(), p, map[string]string{"help": "h", "explain": "e"}))
	assert.Equal(t, []models.BotCommand{{Command: "explain", Description: "e"}, {Command: "help", Description: "h"}}, p.params.Commands)

	p.err = errors.New("boom")
	assert.Error(t, PublishCommands(context.Background(), p, nil))
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", nil)
	assert.Error(t, err)
	assert.Equal(t, "...", tokenPrefix("short"))
	assert.Equal(t, "12345678...", tokenPrefix("123456789:abc"))
}
