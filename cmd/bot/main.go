package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/Spok95/telegram-classroom-bot/internal/app"
	"github.com/Spok95/telegram-classroom-bot/internal/bot/flows"
	"github.com/Spok95/telegram-classroom-bot/internal/config"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/jobs"
	"github.com/Spok95/telegram-classroom-bot/internal/logging"
	"github.com/Spok95/telegram-classroom-bot/internal/observability"
	"github.com/Spok95/telegram-classroom-bot/internal/session"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

const version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("файл .env не найден, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("логгер: %v", err)
	}
	defer lg.Closer()
	logger := lg.Sugar

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warnw("sentry не инициализирован", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("подключение к БД", "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatalw("миграции", "err", err)
	}
	if err := db.SeedTokenTypes(ctx, database); err != nil {
		logger.Fatalw("сидирование типов баллов", "err", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatalw("запуск бота", "err", err)
	}
	logger.Infow("бот запущен", "username", bot.Self.UserName)

	app.StartHTTP(ctx, cfg.HTTPAddr, database)

	notifier := &tg.Notifier{Bot: bot, Log: logger}
	sessions := session.New()
	engine := dialog.NewEngine(sessions, logger)
	wf := workflow.New(&db.Store{DB: database}, notifier, logger)

	deps := &flows.Deps{
		Bot:      bot,
		DB:       database,
		Sessions: sessions,
		Engine:   engine,
		Workflow: wf,
		Log:      logger,
		PageSize: cfg.PageSize,
	}
	dispatcher := app.NewDispatcher(deps, cfg.AdminIDs)

	reminders := &jobs.DeadlineReminders{DB: database, Notifier: notifier, Log: logger}
	jobs.New(ctx).Every(time.Minute, "deadline_reminders", reminders.Run)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			logger.Info("остановка по сигналу")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			go dispatcher.HandleUpdate(ctx, upd)
		}
	}
}
