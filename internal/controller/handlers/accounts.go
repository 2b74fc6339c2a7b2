package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/checkin_bot/internal/controller/state"
	"github.com/Freeeeeet/checkin_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleAddAccount начинает диалог добавления аккаунта
func (h *Handlers) HandleAddAccount(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.stateManager.SetState(update.Message.From.ID, state.StateAddAccountToken)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: "🔑 Пришли Bearer-токен аккаунта SEAtS.\n\n" +
			"Его можно достать из трафика мобильного приложения. " +
			"Префикс «Bearer » можно не убирать.\n\n" +
			"Прервать: /cancel",
	})
}

// HandleTextMessage обрабатывает текстовые сообщения в диалогах
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	// Команды обрабатываются своими хендлерами
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	switch h.stateManager.GetState(userID) {
	case state.StateAddAccountToken:
		h.handleTokenInput(ctx, b, userID, chatID, update.Message.Text)
	case state.StateAddAccountAlias:
		h.handleAliasInput(ctx, b, userID, chatID, update.Message.Text)
	}
}

// handleTokenInput первый шаг диалога: проверяем токен и спрашиваем имя
func (h *Handlers) handleTokenInput(ctx context.Context, b *bot.Bot, userID, chatID int64, text string) {
	token := strings.TrimSpace(text)

	if !service.ValidateToken(token) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🤔 Это не похоже на токен. Пришли токен ещё раз или прерви диалог: /cancel",
		})
		return
	}

	h.stateManager.SetData(userID, "token", token)
	h.stateManager.SetState(userID, state.StateAddAccountAlias)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✏️ Как назвать аккаунт? Например «Личный».",
	})
}

// handleAliasInput второй шаг диалога: сохраняем аккаунт
func (h *Handlers) handleAliasInput(ctx context.Context, b *bot.Bot, userID, chatID int64, text string) {
	alias := strings.TrimSpace(text)
	if alias == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Имя не может быть пустым, попробуй ещё раз.",
		})
		return
	}

	tokenValue, ok := h.stateManager.GetData(userID, "token")
	if !ok {
		// Состояние потерялось (например, рестарт бота) - начинаем заново
		h.stateManager.ClearState(userID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "😿 Диалог устарел, начни заново: /addaccount",
		})
		return
	}
	token, _ := tokenValue.(string)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Сохраняю аккаунт и запрашиваю ключ подписи...",
	})

	account, err := h.accountService.AddAccount(ctx, chatID, alias, token)
	if err != nil {
		h.logger.Error("Failed to add account", zap.String("alias", alias), zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не получилось сохранить аккаунт: " + err.Error(),
		})
		return
	}

	h.stateManager.ClearState(userID)

	text = "✅ Аккаунт «" + account.Alias + "» добавлен, автоотметка включена."
	if account.SigningKey == "" {
		text += "\n\n⚠️ Ключ подписи получить не удалось - отметки не будут проходить. " +
			"Проверь токен и удали/добавь аккаунт заново."
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

// HandleDeleteAccount обрабатывает команду /delaccount <имя>
func (h *Handlers) HandleDeleteAccount(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	account := h.resolveAccount(ctx, b, chatID, commandArg(update.Message.Text))
	if account == nil {
		return
	}

	if err := h.accountService.DeleteAccount(ctx, chatID, account.Alias); err != nil {
		h.logger.Error("Failed to delete account", zap.String("alias", account.Alias), zap.Error(err))
		h.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🗑 Аккаунт «" + account.Alias + "» удалён.",
	})
}

// HandleEnable обрабатывает команду /enable <имя>
func (h *Handlers) HandleEnable(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setAccountActive(ctx, b, update, true)
}

// HandleDisable обрабатывает команду /disable <имя>
func (h *Handlers) HandleDisable(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setAccountActive(ctx, b, update, false)
}

func (h *Handlers) setAccountActive(ctx context.Context, b *bot.Bot, update *models.Update, isActive bool) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	account := h.resolveAccount(ctx, b, chatID, commandArg(update.Message.Text))
	if account == nil {
		return
	}

	if err := h.accountService.SetActive(ctx, chatID, account.Alias, isActive); err != nil {
		h.logger.Error("Failed to toggle account", zap.String("alias", account.Alias), zap.Error(err))
		h.sendError(ctx, b, chatID)
		return
	}

	text := "🟢 Автоотметка для «" + account.Alias + "» включена."
	if !isActive {
		text = "⚪ Автоотметка для «" + account.Alias + "» выключена."
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}
