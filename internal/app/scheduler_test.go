package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	accounts []*model.Account
	err      error
}

func (f *fakeAccounts) ListActive(_ context.Context) ([]*model.Account, error) {
	return f.accounts, f.err
}

type fakeCatalog struct {
	mu      sync.Mutex
	byToken map[string]*model.UserData
	errFor  map[string]error
}

func (f *fakeCatalog) GetUserData(_ context.Context, token string) (*model.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[token]; ok {
		return nil, err
	}
	data, ok := f.byToken[token]
	if !ok {
		return nil, fmt.Errorf("unknown token %q", token)
	}
	return data, nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []*model.CheckinRequest
}

func (f *fakeSubmitter) PerformCheckIn(_ context.Context, req *model.CheckinRequest) *model.CheckinOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &model.CheckinOutcome{Success: true, Code: 200}
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testAccount(id int64, alias, token string) *model.Account {
	return &model.Account{
		ID:         id,
		ChatID:     100,
		Alias:      alias,
		Token:      token,
		SigningKey: "key",
		IsActive:   true,
	}
}

func testLesson(title string, start time.Time, timetableID int64) *model.Lesson {
	return &model.Lesson{
		Title:       title,
		StartTime:   start,
		TimetableID: timetableID,
	}
}

// newTestScheduler собирает планировщик с фиксированными "сейчас" и
// нулевым джиттером, циклы не запускаются
func newTestScheduler(accounts AccountSource, catalog Catalog, submitter Submitter, now time.Time) *CheckinScheduler {
	s := NewCheckinScheduler(accounts, catalog, submitter, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }
	s.jitter = func() time.Duration { return 0 }
	return s
}

func TestSchedulerTriggerTime(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok": {StudentID: "S1", Lessons: []*model.Lesson{testLesson("Алгоритмы", lessonStart, 1)}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{testAccount(1, "ivan", "tok")}}
	submitter := &fakeSubmitter{}

	s := newTestScheduler(accounts, catalog, submitter, now)
	s.refresh(context.Background())

	up := s.Upcoming()
	if up == nil {
		t.Fatalf("expected an upcoming target")
	}
	want := lessonStart.Add(-time.Minute)
	if !up.TriggerTime.Equal(want) {
		t.Fatalf("expected trigger %v, got %v", want, up.TriggerTime)
	}
	if up.Title != "Алгоритмы" || len(up.Aliases) != 1 || up.Aliases[0] != "ivan" {
		t.Fatalf("unexpected upcoming: %+v", up)
	}
}

func TestSchedulerJitterStaysWithinWindow(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok": {StudentID: "S1", Lessons: []*model.Lesson{testLesson("Алгоритмы", lessonStart, 1)}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{testAccount(1, "ivan", "tok")}}

	// Джиттер настоящий, фиксируется только "сейчас"
	s := NewCheckinScheduler(accounts, catalog, &fakeSubmitter{}, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }

	for i := 0; i < 200; i++ {
		s.pending = make(map[string]*target)
		s.fired = make(map[string]struct{})
		s.refresh(context.Background())

		up := s.Upcoming()
		if up == nil {
			t.Fatalf("expected an upcoming target")
		}
		if up.TriggerTime.Before(lessonStart.Add(-2*time.Minute)) || up.TriggerTime.After(lessonStart) {
			t.Fatalf("trigger %v outside [start-2m, start]", up.TriggerTime)
		}
	}
}

func TestSchedulerFiresAtMostOnce(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 58, 30, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok": {StudentID: "S1", Lessons: []*model.Lesson{testLesson("Алгоритмы", lessonStart, 1)}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{testAccount(1, "ivan", "tok")}}
	submitter := &fakeSubmitter{}

	s := newTestScheduler(accounts, catalog, submitter, now)
	s.refresh(context.Background())

	// Минута прошла, цель созрела
	fireAt := now.Add(time.Minute)
	s.now = func() time.Time { return fireAt }

	for i := 0; i < 3; i++ {
		s.fireDue(context.Background())
	}
	// Повторный refresh не должен вернуть занятие в очередь
	s.refresh(context.Background())
	s.fireDue(context.Background())
	s.inflight.Wait()

	if got := submitter.count(); got != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", got)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("expected empty queue, got %d", s.PendingCount())
	}

	req := submitter.requests[0]
	if req.StudentID != "S1" || req.Alias != "ivan" || req.Lesson.Title != "Алгоритмы" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestSchedulerGraceWindow(t *testing.T) {
	now := time.Date(2026, 9, 7, 9, 5, 0, 0, time.Local)

	// Триггер 5 минут назад: внутри окна, цель ставится.
	// Триггер 3 часа назад: безнадёжно, пропускается.
	recent := testLesson("Недавнее", now.Add(-4*time.Minute), 1)
	stale := testLesson("Давнее", now.Add(-3*time.Hour), 2)

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok": {StudentID: "S1", Lessons: []*model.Lesson{recent, stale}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{testAccount(1, "ivan", "tok")}}
	submitter := &fakeSubmitter{}

	s := newTestScheduler(accounts, catalog, submitter, now)
	s.refresh(context.Background())

	if s.PendingCount() != 1 {
		t.Fatalf("expected 1 pending target, got %d", s.PendingCount())
	}

	s.fireDue(context.Background())
	s.inflight.Wait()

	if got := submitter.count(); got != 1 {
		t.Fatalf("expected 1 submission, got %d", got)
	}
	if submitter.requests[0].Lesson.Title != "Недавнее" {
		t.Fatalf("unexpected lesson fired: %s", submitter.requests[0].Lesson.Title)
	}
}

func TestSchedulerAccountFailureIsolation(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	catalog := &fakeCatalog{
		byToken: map[string]*model.UserData{
			"good": {StudentID: "S1", Lessons: []*model.Lesson{testLesson("Алгоритмы", lessonStart, 1)}},
		},
		errFor: map[string]error{"bad": fmt.Errorf("401 unauthorized")},
	}
	accounts := &fakeAccounts{accounts: []*model.Account{
		testAccount(1, "ivan", "good"),
		testAccount(2, "petr", "bad"),
	}}

	s := newTestScheduler(accounts, catalog, &fakeSubmitter{}, now)
	s.refresh(context.Background())

	if s.PendingCount() != 1 {
		t.Fatalf("expected 1 pending target, got %d", s.PendingCount())
	}
}

func TestSchedulerSkipsUnconfiguredAccounts(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)

	noToken := testAccount(1, "ivan", "")
	noKey := testAccount(2, "petr", "tok")
	noKey.SigningKey = ""

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{}}
	accounts := &fakeAccounts{accounts: []*model.Account{noToken, noKey}}

	s := newTestScheduler(accounts, catalog, &fakeSubmitter{}, now)
	s.refresh(context.Background())

	if s.PendingCount() != 0 {
		t.Fatalf("expected no targets, got %d", s.PendingCount())
	}
}

func TestSchedulerUpcomingGroupsAliases(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	shared := func() *model.Lesson { return testLesson("Алгоритмы", lessonStart, 1) }

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok1": {StudentID: "S1", Lessons: []*model.Lesson{shared()}},
		"tok2": {StudentID: "S2", Lessons: []*model.Lesson{shared()}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{
		testAccount(1, "petr", "tok1"),
		testAccount(2, "ivan", "tok2"),
	}}

	s := newTestScheduler(accounts, catalog, &fakeSubmitter{}, now)
	s.refresh(context.Background())

	up := s.Upcoming()
	if up == nil {
		t.Fatalf("expected an upcoming target")
	}
	// Одно и то же занятие у двух аккаунтов, алиасы по алфавиту
	if len(up.Aliases) != 2 || up.Aliases[0] != "ivan" || up.Aliases[1] != "petr" {
		t.Fatalf("unexpected aliases: %v", up.Aliases)
	}
}

func TestSchedulerStudentIDFallback(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.Local)
	lessonStart := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)

	catalog := &fakeCatalog{byToken: map[string]*model.UserData{
		"tok": {StudentID: "", Lessons: []*model.Lesson{testLesson("Алгоритмы", lessonStart, 1)}},
	}}
	accounts := &fakeAccounts{accounts: []*model.Account{testAccount(7, "ivan", "tok")}}
	submitter := &fakeSubmitter{}

	s := newTestScheduler(accounts, catalog, submitter, now)
	s.refresh(context.Background())

	s.now = func() time.Time { return lessonStart }
	s.fireDue(context.Background())
	s.inflight.Wait()

	if got := submitter.count(); got != 1 {
		t.Fatalf("expected 1 submission, got %d", got)
	}
	if submitter.requests[0].StudentID != "acct7" {
		t.Fatalf("unexpected student id: %q", submitter.requests[0].StudentID)
	}
}
