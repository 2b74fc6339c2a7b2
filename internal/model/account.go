package model

import "time"

type Account struct {
	ID         int64     `json:"id"`
	ChatID     int64     `json:"chat_id"` // Telegram-чат владельца аккаунта
	Alias      string    `json:"alias"`
	Token      string    `json:"token"`
	SigningKey string    `json:"signing_key"` // зашифрованный ключ подписи (setting MobilePhone)
	WebhookURL *string   `json:"webhook_url"` // указатель - может быть nil
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
