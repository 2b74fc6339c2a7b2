package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// sendError отправляет стандартное сообщение о внутренней ошибке
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "❌ Что-то пошло не так. Попробуй позже.",
	})
}

// commandArg извлекает аргумент команды: "/schedule Личный" -> "Личный"
func commandArg(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// resolveAccount находит аккаунт чата по алиасу из аргумента команды.
// Если алиас не указан и аккаунт один - берётся он. При любой проблеме
// пользователю уходит подсказка, вызывающему - nil.
func (h *Handlers) resolveAccount(ctx context.Context, b *bot.Bot, chatID int64, alias string) *model.Account {
	if alias != "" {
		account, err := h.accountService.GetAccount(ctx, chatID, alias)
		if err != nil {
			h.logger.Error("Failed to get account", zap.String("alias", alias), zap.Error(err))
			h.sendError(ctx, b, chatID)
			return nil
		}
		if account == nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "🤷 Аккаунт «" + alias + "» не найден. Список: /accounts",
			})
			return nil
		}
		return account
	}

	accounts, err := h.accountService.ListAccounts(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to list accounts", zap.Error(err))
		h.sendError(ctx, b, chatID)
		return nil
	}

	switch len(accounts) {
	case 0:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "У тебя пока нет аккаунтов. Добавь первый: /addaccount",
		})
		return nil
	case 1:
		return accounts[0]
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "У тебя несколько аккаунтов, укажи имя: например /schedule Личный",
		})
		return nil
	}
}
