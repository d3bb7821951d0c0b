// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/explainbot/internal/bot"
	"github.com/edgard/explainbot/internal/bot/handlers"
	"github.com/edgard/explainbot/internal/bot/tasks"
	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/database"
	"github.com/edgard/explainbot/internal/explain"
	"github.com/edgard/explainbot/internal/gemini"
	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/logger"
	"github.com/edgard/explainbot/internal/persona"
	"github.com/edgard/explainbot/internal/search"
	"github.com/edgard/explainbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log, logCloser := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON,
		logger.WithRotatingFile(cfg.Logger.File, cfg.Logger.MaxSizeMB, cfg.Logger.MaxBackups, cfg.Logger.MaxAgeDays))
	defer func() {
		if err := logCloser.Close(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "file", cfg.Logger.File)

	kwCfg, kwErrs := cfg.KeywordConfig()
	for _, e := range kwErrs {
		log.Warn("Dropped keyword prompt rule", "error", e)
	}
	log.Info("Keyword prompts loaded", "enabled", kwCfg.Enabled, "rules", len(kwCfg.Rules), "strategy", kwCfg.Strategy)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	moods := persona.NewCachedProvider(store, cfg.Persona.MoodCacheTTL)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, cfg.Persona.Name, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	tools := search.NewRegistry(log)
	if cfg.ContentGeneration.EnableTools {
		for _, name := range gemClient.AvailableTools() {
			tools.Register(name)
		}
	}

	assembler := history.NewAssembler(store, cfg.HistoryConfig(), history.WithLogger(log))
	orchestrator := explain.NewOrchestrator(
		log,
		cfg.ExplainConfig(kwCfg),
		assembler,
		gemClient,
		persona.NewAdapter(log, cfg.Persona.DefaultMood),
		moods,
		tools,
	)
	log.Info("Registered action", "name", orchestrator.Name(), "description", orchestrator.Description())

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Action: orchestrator,
		Moods:  moods,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	registered := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, registered); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.PublishCommands(ctx, tg, handlers.CommandMenu(registered)); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
