// Package bot runs the Telegram listener and the maintenance scheduler
// side by side and stops both on shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// ErrListenerStopped is returned by Run when the Telegram listener returns
// while the run context is still live.
var ErrListenerStopped = errors.New("telegram listener stopped unexpectedly")

// Listener receives Telegram updates until ctx is cancelled.
type Listener interface {
	Start(ctx context.Context)
}

var _ Listener = (*tgbot.Bot)(nil)

// Pinger is checked once before anything starts.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Bot owns the long-running components.
type Bot struct {
	logger    *slog.Logger
	store     Pinger
	listener  Listener
	scheduler *Scheduler
}

// NewBot wires the long-running components together.
func NewBot(logger *slog.Logger, store Pinger, listener Listener, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot"),
		store:     store,
		listener:  listener,
		scheduler: scheduler,
	}
}

// Run blocks until ctx is cancelled or the listener or scheduler fails.
// A cancelled ctx is a clean shutdown and yields nil.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.store.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.listen(gCtx) })
	g.Go(func() error { return b.schedule(gCtx) })

	b.logger.Info("Bot running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot stopped with error", "error", err)
		return err
	}
	b.logger.Info("Bot stopped")
	return nil
}

func (b *Bot) listen(ctx context.Context) error {
	b.logger.Debug("Telegram listener starting")
	b.listener.Start(ctx)
	if ctx.Err() == nil {
		return ErrListenerStopped
	}
	b.logger.Debug("Telegram listener stopped")
	return nil
}

// schedule keeps the scheduler alive for the lifetime of ctx.
func (b *Bot) schedule(ctx context.Context) error {
	if err := b.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	<-ctx.Done()
	if err := b.scheduler.Stop(); err != nil {
		b.logger.Warn("Scheduler did not stop cleanly", "error", err)
	}
	return nil
}
