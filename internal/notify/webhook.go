package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Цвета embed-сообщений Discord
const (
	colorSuccess = 3066993  // зелёный
	colorFailure = 15158332 // красный
)

// WebhookNotifier отправляет итог отметки Discord-вебхуком аккаунта.
// URL приходит в событии: вебхук настраивается на каждый аккаунт отдельно.
type WebhookNotifier struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhookNotifier(logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Color       int          `json:"color"`
	Description string       `json:"description"`
	Fields      []embedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Notify шлёт embed с итогом отметки. Любой сбой логируется и глотается.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) {
	if event.WebhookURL == "" {
		return
	}

	title := "Check-In Successful"
	color := colorSuccess
	if !event.Success {
		title = "Check-In Failed"
		color = colorFailure
	}

	when := event.Timestamp
	if when.IsZero() {
		when = time.Now()
	}

	e := embed{
		Title:       title,
		Color:       color,
		Description: "**Lesson:** " + event.LessonTitle,
		Fields: []embedField{
			{Name: "Student ID", Value: event.StudentID, Inline: true},
		},
		Timestamp: when.Format("2006-01-02T15:04:05"),
	}

	if event.Success && event.CheckinCode != "" {
		e.Fields = append(e.Fields, embedField{Name: "Check-In Code", Value: event.CheckinCode})
	}
	if event.Error != "" {
		e.Fields = append(e.Fields, embedField{Name: "Error", Value: event.Error})
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		n.logger.Warn("Failed to marshal webhook payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("Failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("Failed to send webhook", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		n.logger.Warn("Webhook rejected", zap.Int("status", resp.StatusCode))
	}
}
