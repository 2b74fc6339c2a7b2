package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/Freeeeeet/checkin_bot/internal/notify"
	"github.com/Freeeeeet/checkin_bot/internal/seats"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Зашифрованный ключ подписи для тестов, расшифровывается в валидный hex
const testSigningKey = "bbLcrRYHS3fkECganLppcQ=="

type notifierStub struct {
	events []notify.Event
}

func (n *notifierStub) Notify(_ context.Context, event notify.Event) {
	n.events = append(n.events, event)
}

func newTestCheckinService(t *testing.T, handler http.HandlerFunc) (*CheckinService, *notifierStub, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	stub := &notifierStub{}

	svc := NewCheckinService(seats.NewClient(srv.URL, zap.NewNop()), stub, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, 9, 7, 8, 59, 0, 0, time.Local)
	}
	svc.pickBeacon = func(int) int { return 0 }

	return svc, stub, srv.Close
}

func testRequest() *model.CheckinRequest {
	return &model.CheckinRequest{
		Token:      "token",
		SigningKey: testSigningKey,
		StudentID:  "S12345",
		Alias:      "ivan",
		Lesson: &model.Lesson{
			Title:             "Алгоритмы",
			StartTime:         time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local),
			TimetableID:       1234,
			StudentScheduleID: 5678,
			CheckinCode:       "FALLBACK",
			Beacons: []model.Beacon{
				{UUID: uuid.MustParse("f7826da6-4fa2-4e98-8024-bc5b71e0893e")},
			},
		},
	}
}

func TestPerformCheckInSuccess(t *testing.T) {
	svc, stub, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fp") == "" {
			t.Errorf("expected fp query param")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"checkinCode":"ABC123"}`))
	})
	defer done()

	outcome := svc.PerformCheckIn(context.Background(), testRequest())

	if !outcome.Success || outcome.Code != http.StatusCreated {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.CheckinCode != "ABC123" {
		t.Fatalf("expected code from server, got %q", outcome.CheckinCode)
	}

	if len(stub.events) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(stub.events))
	}
	ev := stub.events[0]
	if !ev.Success || ev.LessonTitle != "Алгоритмы" || ev.StudentID != "S12345" || ev.CheckinCode != "ABC123" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestPerformCheckInCodeFallback(t *testing.T) {
	svc, _, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer done()

	outcome := svc.PerformCheckIn(context.Background(), testRequest())

	if !outcome.Success {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.CheckinCode != "FALLBACK" {
		t.Fatalf("expected fallback code from lesson, got %q", outcome.CheckinCode)
	}
}

func TestPerformCheckInServerRejection(t *testing.T) {
	svc, stub, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Already checked in"))
	})
	defer done()

	outcome := svc.PerformCheckIn(context.Background(), testRequest())

	if outcome.Success {
		t.Fatalf("expected failure")
	}
	if outcome.Code != http.StatusBadRequest || outcome.Error != "Already checked in" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if len(stub.events) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(stub.events))
	}
	if stub.events[0].Success || stub.events[0].Error != "Already checked in" {
		t.Fatalf("unexpected event: %+v", stub.events[0])
	}
}

func TestPerformCheckInMissingSigningKey(t *testing.T) {
	svc, stub, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected")
	})
	defer done()

	req := testRequest()
	req.SigningKey = ""

	outcome := svc.PerformCheckIn(context.Background(), req)

	if outcome.Success || outcome.Code != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(stub.events) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(stub.events))
	}
}

func TestPerformCheckInNoBeacons(t *testing.T) {
	svc, _, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected")
	})
	defer done()

	req := testRequest()
	req.Lesson.Beacons = nil

	outcome := svc.PerformCheckIn(context.Background(), req)

	if outcome.Success || outcome.Code != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Error != "No iBeacon data available for this lesson." {
		t.Fatalf("unexpected error: %q", outcome.Error)
	}
}

func TestPerformCheckInBadSigningKey(t *testing.T) {
	svc, _, done := newTestCheckinService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected")
	})
	defer done()

	req := testRequest()
	req.SigningKey = "not-base64!!!"

	outcome := svc.PerformCheckIn(context.Background(), req)

	if outcome.Success || outcome.Code != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}
