package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	welcomeText := "👋 Привет!\n\n" +
		"Я бот автоматической отметки посещаемости SEAtS. " +
		"Добавь аккаунт командой /addaccount - и я буду отмечать тебя " +
		"на занятиях за минуту до их начала.\n\n" +
		"Доступные команды:\n" +
		"/accounts - Мои аккаунты\n" +
		"/addaccount - Добавить аккаунт\n" +
		"/schedule - Расписание на неделю\n" +
		"/checkin - Отметиться вручную\n" +
		"/status - Ближайшая автоотметка\n" +
		"/help - Справка"

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   welcomeText,
	})
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/accounts - Список добавленных аккаунтов\n" +
		"/addaccount - Добавить аккаунт (понадобится Bearer-токен)\n" +
		"/delaccount <имя> - Удалить аккаунт\n" +
		"/enable <имя> - Включить автоотметку аккаунта\n" +
		"/disable <имя> - Выключить автоотметку аккаунта\n" +
		"/schedule <имя> - Занятия на ближайшие 7 дней\n" +
		"/timetable <имя> - Расписание недели картинкой\n" +
		"/checkin <имя> - Отметиться на занятии вручную\n" +
		"/status - Ближайшая запланированная отметка\n" +
		"/cancel - Прервать текущий диалог\n\n" +
		"Если аккаунт один, имя можно не указывать."

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   helpText,
	})
}

// HandleAccounts обрабатывает команду /accounts
func (h *Handlers) HandleAccounts(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	accounts, err := h.accountService.ListAccounts(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to list accounts", zap.Error(err))
		h.sendError(ctx, b, chatID)
		return
	}

	if len(accounts) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "У тебя пока нет аккаунтов. Добавь первый: /addaccount",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Твои аккаунты:\n\n")
	for _, account := range accounts {
		status := "🟢 автоотметка включена"
		if !account.IsActive {
			status = "⚪ автоотметка выключена"
		}
		key := "🔑 ключ подписи получен"
		if account.SigningKey == "" {
			key = "⚠️ ключ подписи не получен - отметки не пройдут"
		}
		sb.WriteString(fmt.Sprintf("▪️ %s\n%s\n%s\n\n", account.Alias, status, key))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}

// HandleStatus обрабатывает команду /status
func (h *Handlers) HandleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	up := h.scheduler.Upcoming()
	if up == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "😴 Запланированных отметок нет.",
		})
		return
	}

	wait := time.Until(up.TriggerTime).Truncate(time.Second)
	text := fmt.Sprintf(
		"⏳ Ближайшая отметка:\n\n"+
			"📚 %s\n"+
			"🕐 Начало: %s\n"+
			"👥 Аккаунты: %s\n"+
			"🚀 Сработает через %s\n\n"+
			"Всего в очереди: %d",
		up.Title,
		up.LessonStart.Format("02.01.2006 15:04"),
		strings.Join(up.Aliases, ", "),
		formatDuration(wait),
		h.scheduler.PendingCount(),
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.stateManager.ClearState(update.Message.From.ID)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "✅ Диалог прерван.",
	})
}

// formatDuration форматирует длительность как "1д 2ч 3м 4с"
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if days > 0 {
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}
