package notify

import (
	"context"
	"time"
)

// Event итог одной попытки отметки для внешних уведомлений
type Event struct {
	Success     bool
	LessonTitle string
	StudentID   string
	Alias       string
	Error       string
	CheckinCode string
	Timestamp   time.Time

	// Адресаты уведомления, настраиваются на аккаунт.
	// Пустой WebhookURL / нулевой ChatID отключают соответствующий канал.
	WebhookURL string
	ChatID     int64
}

// Notifier best-effort канал уведомлений об итогах отметки.
// Реализации не возвращают ошибок: сбой уведомления логируется и
// никогда не влияет на результат отметки.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Multi рассылает событие во все каналы по очереди
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
