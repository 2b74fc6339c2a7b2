package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/checkin_bot/internal/app"
	"github.com/Freeeeeet/checkin_bot/internal/config"
	"github.com/Freeeeeet/checkin_bot/internal/controller"
	"github.com/Freeeeeet/checkin_bot/internal/notify"
	"github.com/Freeeeeet/checkin_bot/internal/repository"
	"github.com/Freeeeeet/checkin_bot/internal/seats"
	"github.com/Freeeeeet/checkin_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting check-in bot",
		zap.String("environment", cfg.Environment),
		zap.Duration("fetch_interval", cfg.FetchInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// База данных и миграции
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()
	logger.Info("✅ Migrations applied")

	// Telegram-бот
	tgBot, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create telegram bot", zap.Error(err))
	}

	// Клиент API и сервисы
	client := seats.NewClient(cfg.APIHost, logger)

	notifier := notify.Multi{
		notify.NewWebhookNotifier(logger),
		notify.NewTelegramNotifier(tgBot, cfg.NotifyChatID, logger),
	}

	accountRepo := repository.NewAccountRepository(pool)
	accountService := service.NewAccountService(accountRepo, client, logger)
	scheduleService := service.NewScheduleService(client, logger)
	checkinService := service.NewCheckinService(client, notifier, logger)

	// Планировщик автоотметок
	scheduler := app.NewCheckinScheduler(
		accountRepo,
		scheduleService,
		checkinService,
		cfg.FetchInterval,
		logger,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Контроллер бота: блокируется до отмены контекста
	botController := controller.NewBotController(
		tgBot,
		accountService,
		scheduleService,
		checkinService,
		scheduler,
		logger,
	)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register bot handlers", zap.Error(err))
	}

	botController.Start(ctx)

	logger.Info("Shutting down")
}
