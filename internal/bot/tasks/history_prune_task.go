package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// newHistoryPruneTask bounds the stored history: messages older than the
// retention period are removed, then every chat is trimmed to the configured
// maximum. Both steps run even if the first fails.
func newHistoryPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", HistoryPruneTask)

	return func(ctx context.Context) error {
		var errs []error

		if retention := deps.Config.Database.Retention; retention > 0 {
			cutoff := time.Now().UTC().Add(-retention)
			n, err := deps.Store.DeleteMessagesBefore(ctx, cutoff)
			if err != nil {
				errs = append(errs, fmt.Errorf("delete expired messages: %w", err))
			} else {
				log.InfoContext(ctx, "Deleted expired messages", "count", n, "cutoff", cutoff)
			}
		}

		if keep := deps.Config.Database.MaxHistoryMessages; keep > 0 {
			n, err := deps.Store.TrimChatHistory(ctx, keep)
			if err != nil {
				errs = append(errs, fmt.Errorf("trim chat history: %w", err))
			} else {
				log.InfoContext(ctx, "Trimmed chat history", "count", n, "keep", keep)
			}
		}

		if err := errors.Join(errs...); err != nil {
			log.ErrorContext(ctx, "History prune task failed", "error", err)
			return err
		}
		return nil
	}
}
