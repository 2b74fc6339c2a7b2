package handlers

import (
	"github.com/Freeeeeet/checkin_bot/internal/app"
	"github.com/Freeeeeet/checkin_bot/internal/controller/state"
	"github.com/Freeeeeet/checkin_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	accountService  *service.AccountService
	scheduleService *service.ScheduleService
	checkinService  *service.CheckinService
	scheduler       *app.CheckinScheduler
	stateManager    *state.Manager
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	accountService *service.AccountService,
	scheduleService *service.ScheduleService,
	checkinService *service.CheckinService,
	scheduler *app.CheckinScheduler,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		accountService:  accountService,
		scheduleService: scheduleService,
		checkinService:  checkinService,
		scheduler:       scheduler,
		stateManager:    stateManager,
		logger:          logger,
	}
}
