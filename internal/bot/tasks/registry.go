package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used in the scheduler.tasks configuration section.
const (
	SQLMaintenanceTask = "sql_maintenance"
	HistoryPruneTask   = "history_prune"
)

// RegisterAllTasks returns every known task keyed by its configuration name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		SQLMaintenanceTask: newSQLMaintenanceTask(deps),
		HistoryPruneTask:   newHistoryPruneTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
