package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/explainbot/internal/bot/tasks"
	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/logger"
)

var (
	errSchedulerRunning = errors.New("scheduler is already running")
	errUnknownTask      = errors.New("task not registered")
	errNoSchedule       = errors.New("task has no schedule")
)

// Scheduler runs the maintenance tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a gocron-backed scheduler for the registered tasks.
// cfg decides which of them run and when.
func NewScheduler(base *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if base == nil {
		base = slog.Default()
	}
	if cfg == nil {
		cfg = &config.SchedulerConfig{}
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(logger.NewGocronLogger(base)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    base.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every enabled task and starts the scheduler. A task that
// cannot be scheduled is logged and skipped; it never stops the others.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errSchedulerRunning
	}

	names := make([]string, 0, len(s.cfg.Tasks))
	for name := range s.cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		tc := s.cfg.Tasks[name]
		if !tc.Enabled {
			s.logger.Debug("Task disabled", "task_name", name)
			continue
		}
		if err := s.add(name, tc.Schedule); err != nil {
			s.logger.Warn("Task not scheduled", "task_name", name, "schedule", tc.Schedule, "error", err)
			continue
		}
		s.logger.Info("Task scheduled", "task_name", name, "schedule", tc.Schedule)
		scheduled++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

func (s *Scheduler) add(name, schedule string) error {
	taskFunc, ok := s.taskMap[name]
	if !ok {
		return errUnknownTask
	}
	if schedule == "" {
		return errNoSchedule
	}
	_, err := s.scheduler.NewJob(
		gocron.CronJob(schedule, true),
		gocron.NewTask(s.wrap(taskFunc), context.Background(), name),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// wrap logs every run of a task with its duration.
func (s *Scheduler) wrap(taskFunc tasks.ScheduledTaskFunc) func(context.Context, string) {
	return func(ctx context.Context, name string) {
		started := time.Now()
		err := taskFunc(ctx)
		log := s.logger.With("task_name", name, "duration", time.Since(started))
		if err != nil {
			log.Error("Scheduled task failed", "error", err)
			return
		}
		log.Info("Scheduled task finished")
	}
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// Stop shuts the scheduler down, waiting for running jobs. Stopping a
// scheduler that is not running is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}
