package tasks

import (
	"context"
	"fmt"
	"time"
)

// maintenanceTimeout caps a VACUUM/ANALYZE run so it cannot hold the single
// database connection indefinitely.
const maintenanceTimeout = 10 * time.Minute

// newSQLMaintenanceTask compacts and re-analyzes the history database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SQLMaintenanceTask)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		started := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "elapsed", time.Since(started))
			return fmt.Errorf("sql maintenance: %w", err)
		}
		log.InfoContext(ctx, "SQL maintenance done", "elapsed", time.Since(started))
		return nil
	}
}
