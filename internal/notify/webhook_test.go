package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func captureWebhook(t *testing.T) (*httptest.Server, *[]byte) {
	t.Helper()
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	return srv, &body
}

func TestWebhookNotifierSuccessEmbed(t *testing.T) {
	srv, body := captureWebhook(t)
	defer srv.Close()

	n := NewWebhookNotifier(zap.NewNop())
	n.Notify(context.Background(), Event{
		Success:     true,
		LessonTitle: "Алгоритмы",
		StudentID:   "S12345",
		CheckinCode: "ABC123",
		Timestamp:   time.Date(2026, 9, 7, 8, 59, 0, 0, time.Local),
		WebhookURL:  srv.URL,
	})

	var payload webhookPayload
	if err := json.Unmarshal(*body, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}

	e := payload.Embeds[0]
	if e.Title != "Check-In Successful" || e.Color != colorSuccess {
		t.Fatalf("unexpected embed: %+v", e)
	}
	if e.Description != "**Lesson:** Алгоритмы" {
		t.Fatalf("unexpected description: %q", e.Description)
	}
	if e.Timestamp != "2026-09-07T08:59:00" {
		t.Fatalf("unexpected timestamp: %q", e.Timestamp)
	}
	if len(e.Fields) != 2 || e.Fields[0].Value != "S12345" || e.Fields[1].Value != "ABC123" {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestWebhookNotifierFailureEmbed(t *testing.T) {
	srv, body := captureWebhook(t)
	defer srv.Close()

	n := NewWebhookNotifier(zap.NewNop())
	n.Notify(context.Background(), Event{
		Success:     false,
		LessonTitle: "Алгоритмы",
		StudentID:   "S12345",
		Error:       "Already checked in",
		WebhookURL:  srv.URL,
	})

	var payload webhookPayload
	if err := json.Unmarshal(*body, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}

	e := payload.Embeds[0]
	if e.Title != "Check-In Failed" || e.Color != colorFailure {
		t.Fatalf("unexpected embed: %+v", e)
	}
	if len(e.Fields) != 2 || e.Fields[1].Name != "Error" || e.Fields[1].Value != "Already checked in" {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewWebhookNotifier(zap.NewNop())
	n.Notify(context.Background(), Event{Success: true, LessonTitle: "Алгоритмы"})

	if called {
		t.Fatalf("expected no request without webhook url")
	}
}
