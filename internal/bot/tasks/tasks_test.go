package tasks_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/bot/tasks"
	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/database"
)

func newDeps(t *testing.T, retention time.Duration, keep int) tasks.TaskDeps {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.Database.Retention = retention
	cfg.Database.MaxHistoryMessages = keep

	return tasks.TaskDeps{Logger: logger, Store: database.NewStore(db, logger), Config: cfg}
}

func seed(t *testing.T, s database.Store, chatID int64, n int, start time.Time) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, s.SaveMessage(context.Background(), &database.Message{
			ChatID:    chatID,
			MessageID: int64(i),
			UserID:    7,
			Content:   "hello",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}))
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	got := tasks.RegisterAllTasks(newDeps(t, 0, 10))
	assert.Len(t, got, 2)
	assert.Contains(t, got, tasks.SQLMaintenanceTask)
	assert.Contains(t, got, tasks.HistoryPruneTask)
}

func TestHistoryPrune(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		retention time.Duration
		keep      int
		start     time.Time
		wantLeft  int
	}{
		{"trim only", 0, 3, time.Now().UTC().Add(-24 * time.Hour), 3},
		{"retention removes expired", 48 * time.Hour, 100, time.Now().UTC().Add(-100 * time.Hour), 0},
		{"retention keeps recent", 48 * time.Hour, 100, time.Now().UTC().Add(-10 * time.Hour), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			deps := newDeps(t, tt.retention, tt.keep)
			seed(t, deps.Store, 1, 5, tt.start)

			prune := tasks.RegisterAllTasks(deps)[tasks.HistoryPruneTask]
			require.NoError(t, prune(context.Background()))

			left, err := deps.Store.RecentMessages(context.Background(), 1, 100, 0)
			require.NoError(t, err)
			assert.Len(t, left, tt.wantLeft)
		})
	}
}

func TestSQLMaintenance(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, 0, 10)
	run := tasks.RegisterAllTasks(deps)[tasks.SQLMaintenanceTask]
	require.NoError(t, run(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, run(ctx))
}
