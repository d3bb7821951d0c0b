package bot_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/bot"
	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/database"
)

type blockingListener struct{}

func (blockingListener) Start(ctx context.Context) { <-ctx.Done() }

type returningListener struct{}

func (returningListener) Start(context.Context) {}

func newRunDeps(t *testing.T) (*slog.Logger, database.Store, *bot.Scheduler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	s, err := bot.NewScheduler(logger, &config.SchedulerConfig{}, nil)
	require.NoError(t, err)
	return logger, database.NewStore(db, logger), s
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	logger, store, sched := newRunDeps(t)
	b := bot.NewBot(logger, store, blockingListener{}, sched)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestBot_RunFailsWhenListenerStops(t *testing.T) {
	t.Parallel()

	logger, store, sched := newRunDeps(t)
	b := bot.NewBot(logger, store, returningListener{}, sched)

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, bot.ErrListenerStopped)
}
