package model

// CheckinOutcome результат одной попытки отметки
type CheckinOutcome struct {
	Success     bool   `json:"success"`
	Code        int    `json:"code"` // HTTP-статус, 0 для локальных ошибок
	CheckinCode string `json:"checkinCode,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CheckinRequest всё что нужно для одной отметки одного занятия
type CheckinRequest struct {
	Token      string
	SigningKey string // зашифрованный ключ подписи
	StudentID  string
	Alias      string // имя аккаунта для уведомлений
	Lesson     *Lesson
	WebhookURL string // пустая строка - webhook отключён
	ChatID     int64  // 0 - уведомления в Telegram отключены
}
