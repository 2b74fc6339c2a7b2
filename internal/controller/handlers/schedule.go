package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSchedule обрабатывает команду /schedule <имя>
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	account := h.resolveAccount(ctx, b, chatID, commandArg(update.Message.Text))
	if account == nil {
		return
	}

	data, err := h.scheduleService.GetUserData(ctx, account.Token)
	if err != nil {
		h.logger.Error("Failed to fetch schedule", zap.String("alias", account.Alias), zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось получить расписание. Проверь токен аккаунта.",
		})
		return
	}

	if len(data.Lessons) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🎉 На ближайшую неделю занятий нет.",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 %s (%s)\n\n", data.Name, data.StudentID))
	for _, lesson := range data.Lessons {
		sb.WriteString(fmt.Sprintf("▪️ %s - %s", lesson.StartTime.Format("02.01 15:04"), lesson.Title))
		if lesson.Room != "" {
			sb.WriteString(" (" + lesson.Room + ")")
		}
		if len(lesson.Beacons) == 0 {
			sb.WriteString(" ⚠️ без маячков")
		}
		sb.WriteString("\n")
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}

// HandleTimetable обрабатывает команду /timetable <имя> - расписание картинкой
func (h *Handlers) HandleTimetable(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	account := h.resolveAccount(ctx, b, chatID, commandArg(update.Message.Text))
	if account == nil {
		return
	}

	data, err := h.scheduleService.GetUserData(ctx, account.Token)
	if err != nil {
		h.logger.Error("Failed to fetch schedule", zap.String("alias", account.Alias), zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось получить расписание. Проверь токен аккаунта.",
		})
		return
	}

	imageData, err := GenerateWeekImage(data.Lessons)
	if err != nil {
		h.logger.Error("Failed to generate week image", zap.Error(err))
		h.sendError(ctx, b, chatID)
		return
	}

	b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(imageData)},
		Caption: "🗓 Расписание «" + account.Alias + "» на неделю",
	})
}

// HandleCheckin обрабатывает команду /checkin <имя> - ручная отметка
func (h *Handlers) HandleCheckin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	account := h.resolveAccount(ctx, b, chatID, commandArg(update.Message.Text))
	if account == nil {
		return
	}

	data, err := h.scheduleService.GetUserData(ctx, account.Token)
	if err != nil {
		h.logger.Error("Failed to fetch schedule", zap.String("alias", account.Alias), zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось получить расписание. Проверь токен аккаунта.",
		})
		return
	}

	if len(data.Lessons) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🎉 На ближайшую неделю занятий нет.",
		})
		return
	}

	// Занятия и аккаунт кладём в состояние: в callback влезает только id
	h.stateManager.SetData(userID, "checkin_account", account)
	h.stateManager.SetData(userID, "checkin_student_id", data.StudentID)
	h.stateManager.SetData(userID, "checkin_lessons", data.Lessons)

	var rows [][]models.InlineKeyboardButton
	for _, lesson := range data.Lessons {
		label := fmt.Sprintf("%s %s", lesson.StartTime.Format("02.01 15:04"), lesson.Title)
		if runes := []rune(label); len(runes) > 60 {
			label = string(runes[:60]) + "…"
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: "ci:" + strconv.FormatInt(lesson.TimetableID, 10),
		}})
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "📍 Выбери занятие для отметки:",
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// HandleCheckinCallback обрабатывает выбор занятия для ручной отметки
func (h *Handlers) HandleCheckinCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	callback := update.CallbackQuery
	userID := callback.From.ID

	if callback.Message.Message == nil {
		return
	}
	chatID := callback.Message.Message.Chat.ID

	// Убираем "часики" на кнопке
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	})

	if !strings.HasPrefix(callback.Data, "ci:") {
		return
	}
	timetableID, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, "ci:"), 10, 64)
	if err != nil {
		return
	}

	accountValue, okAccount := h.stateManager.GetData(userID, "checkin_account")
	lessonsValue, okLessons := h.stateManager.GetData(userID, "checkin_lessons")
	studentIDValue, _ := h.stateManager.GetData(userID, "checkin_student_id")
	if !okAccount || !okLessons {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "😿 Выбор устарел, начни заново: /checkin",
		})
		return
	}

	account, _ := accountValue.(*model.Account)
	lessons, _ := lessonsValue.([]*model.Lesson)
	studentID, _ := studentIDValue.(string)

	var lesson *model.Lesson
	for _, l := range lessons {
		if l.TimetableID == timetableID {
			lesson = l
			break
		}
	}
	if account == nil || lesson == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "😿 Выбор устарел, начни заново: /checkin",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Отмечаюсь на «" + lesson.Title + "»...",
	})

	webhookURL := ""
	if account.WebhookURL != nil {
		webhookURL = *account.WebhookURL
	}

	outcome := h.checkinService.PerformCheckIn(ctx, &model.CheckinRequest{
		Token:      account.Token,
		SigningKey: account.SigningKey,
		StudentID:  studentID,
		Alias:      account.Alias,
		Lesson:     lesson,
		WebhookURL: webhookURL,
		ChatID:     account.ChatID,
	})

	// Итог уйдёт и через нотификатор; здесь отвечаем тому, кто нажал кнопку
	if outcome.Success {
		text := "✅ Отметка прошла!"
		if outcome.CheckinCode != "" {
			text += " Код: " + outcome.CheckinCode
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	} else {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("❌ Отметка не прошла (код %d): %s", outcome.Code, outcome.Error),
		})
	}
}
