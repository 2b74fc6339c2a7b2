package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// TelegramNotifier шлёт итог отметки в чат владельца аккаунта и,
// если настроен, в общий операторский чат
type TelegramNotifier struct {
	bot         *bot.Bot
	adminChatID int64
	logger      *zap.Logger
}

func NewTelegramNotifier(b *bot.Bot, adminChatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: b, adminChatID: adminChatID, logger: logger}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event Event) {
	if n.bot == nil {
		return
	}

	var text string
	if event.Success {
		text = fmt.Sprintf("✅ Отметка прошла\n\n📚 %s\n👤 %s", event.LessonTitle, event.Alias)
		if event.CheckinCode != "" {
			text += fmt.Sprintf("\n🎫 Код: %s", event.CheckinCode)
		}
	} else {
		text = fmt.Sprintf("❌ Отметка не прошла\n\n📚 %s\n👤 %s", event.LessonTitle, event.Alias)
		if event.Error != "" {
			text += fmt.Sprintf("\n⚠️ %s", event.Error)
		}
	}

	chats := make([]int64, 0, 2)
	if event.ChatID != 0 {
		chats = append(chats, event.ChatID)
	}
	if n.adminChatID != 0 && n.adminChatID != event.ChatID {
		chats = append(chats, n.adminChatID)
	}

	for _, chatID := range chats {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			n.logger.Warn("Failed to send telegram notification",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
	}
}
