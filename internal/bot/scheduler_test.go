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
	"github.com/edgard/explainbot/internal/bot/tasks"
	"github.com/edgard/explainbot/internal/config"
)

func TestScheduler_RunsEnabledTasks(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 10)
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
		"disabled": func(context.Context) error { return nil },
		"bad_cron": func(context.Context) error { return nil },
		"no_sched": func(context.Context) error { return nil },
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick":     {Enabled: true, Schedule: "* * * * * *"},
		"disabled": {Enabled: false, Schedule: "* * * * * *"},
		"bad_cron": {Enabled: true, Schedule: "not a cron"},
		"no_sched": {Enabled: true},
		"unknown":  {Enabled: true, Schedule: "* * * * * *"},
	}}

	s, err := bot.NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start must fail")
	assert.Equal(t, []string{"tick"}, s.Jobs())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("enabled task did not run")
	}

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stopping twice is a no-op")
}

func TestScheduler_NoTasks(t *testing.T) {
	t.Parallel()

	s, err := bot.NewScheduler(nil, &config.SchedulerConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Empty(t, s.Jobs())
	require.NoError(t, s.Stop())
}
