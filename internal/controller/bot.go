package controller

import (
	"context"

	"github.com/Freeeeeet/checkin_bot/internal/app"
	"github.com/Freeeeeet/checkin_bot/internal/controller/handlers"
	"github.com/Freeeeeet/checkin_bot/internal/controller/state"
	"github.com/Freeeeeet/checkin_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	accountService *service.AccountService,
	scheduleService *service.ScheduleService,
	checkinService *service.CheckinService,
	scheduler *app.CheckinScheduler,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний для диалогов
	stateManager := state.NewManager()

	cmdHandlers := handlers.NewHandlers(
		accountService,
		scheduleService,
		checkinService,
		scheduler,
		stateManager,
		logger,
	)

	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Команды без аргументов
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/accounts", bot.MatchTypeExact, c.handlers.HandleAccounts)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/addaccount", bot.MatchTypeExact, c.handlers.HandleAddAccount)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, c.handlers.HandleStatus)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Команды с необязательным аргументом-алиасом
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/schedule", bot.MatchTypePrefix, c.handlers.HandleSchedule)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/timetable", bot.MatchTypePrefix, c.handlers.HandleTimetable)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/checkin", bot.MatchTypePrefix, c.handlers.HandleCheckin)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/delaccount", bot.MatchTypePrefix, c.handlers.HandleDeleteAccount)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/enable", bot.MatchTypePrefix, c.handlers.HandleEnable)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/disable", bot.MatchTypePrefix, c.handlers.HandleDisable)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "ci:", bot.MatchTypePrefix, c.handlers.HandleCheckinCallback)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "accounts", Description: "👥 Мои аккаунты"},
		{Command: "addaccount", Description: "➕ Добавить аккаунт"},
		{Command: "schedule", Description: "🗓 Расписание на неделю"},
		{Command: "timetable", Description: "🖼 Расписание картинкой"},
		{Command: "checkin", Description: "📍 Отметиться вручную"},
		{Command: "status", Description: "⏳ Ближайшая автоотметка"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
