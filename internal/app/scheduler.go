package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"go.uber.org/zap"
)

const (
	// Интервал обновления расписаний всех аккаунтов
	defaultFetchInterval = 30 * time.Minute

	// Шаг цикла срабатывания
	fireTick = time.Second

	// Насколько просроченную цель ещё имеет смысл ставить в очередь:
	// отметка в первые минуты занятия обычно ещё принимается
	graceWindow = 10 * time.Minute
)

// AccountSource источник активных аккаунтов для автоотметки
type AccountSource interface {
	ListActive(ctx context.Context) ([]*model.Account, error)
}

// Catalog источник расписания аккаунта
type Catalog interface {
	GetUserData(ctx context.Context, token string) (*model.UserData, error)
}

// Submitter выполняет одну попытку отметки
type Submitter interface {
	PerformCheckIn(ctx context.Context, req *model.CheckinRequest) *model.CheckinOutcome
}

// target запланированная отметка одного занятия одного аккаунта.
// После создания не меняется.
type target struct {
	key         string
	triggerTime time.Time
	lesson      *model.Lesson
	account     *model.Account
	studentID   string
}

// Upcoming ближайшее срабатывание для статуса: алиасы всех аккаунтов,
// у которых это же занятие в очереди
type Upcoming struct {
	Aliases     []string
	Title       string
	LessonStart time.Time
	TriggerTime time.Time
}

// CheckinScheduler планировщик автоотметок.
//
// Два цикла: refresh-цикл раз в fetchInterval подтягивает расписания всех
// активных аккаунтов и заводит цели, fire-цикл раз в секунду отправляет
// созревшие. Ключевой инвариант - не больше одной отправки на ключ занятия
// (studentId-timetableId) за всё время жизни процесса: ключ переводится в
// fired под мьютексом до начала отправки и обратно не возвращается,
// независимо от итога.
//
// Времена занятий и "сейчас" сравниваются в локальной зоне процесса:
// API отдаёт naive-метки, контракт - часовой пояс кампуса на хосте бота.
type CheckinScheduler struct {
	accounts  AccountSource
	catalog   Catalog
	submitter Submitter
	logger    *zap.Logger

	fetchInterval time.Duration

	// Подменяются в тестах
	now    func() time.Time
	jitter func() time.Duration

	mu      sync.Mutex
	pending map[string]*target
	fired   map[string]struct{}

	stopChan chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup
}

func NewCheckinScheduler(
	accounts AccountSource,
	catalog Catalog,
	submitter Submitter,
	fetchInterval time.Duration,
	logger *zap.Logger,
) *CheckinScheduler {
	if fetchInterval <= 0 {
		fetchInterval = defaultFetchInterval
	}
	return &CheckinScheduler{
		accounts:      accounts,
		catalog:       catalog,
		submitter:     submitter,
		logger:        logger,
		fetchInterval: fetchInterval,
		now:           time.Now,
		jitter: func() time.Duration {
			return time.Duration(rand.Intn(121)-60) * time.Second
		},
		pending:  make(map[string]*target),
		fired:    make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Start запускает оба цикла планировщика
func (s *CheckinScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting check-in scheduler",
		zap.Duration("fetch_interval", s.fetchInterval))

	go s.runRefreshLoop(ctx)
	go s.runFireLoop(ctx)
}

// Stop останавливает циклы и дожидается отправок, которые уже начались
func (s *CheckinScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping check-in scheduler")
		close(s.stopChan)
	})
	s.inflight.Wait()
}

// runRefreshLoop периодически обновляет расписания, первый раз - сразу
func (s *CheckinScheduler) runRefreshLoop(ctx context.Context) {
	s.refresh(ctx)

	ticker := time.NewTicker(s.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.stopChan:
			s.logger.Info("Refresh loop stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Refresh loop cancelled")
			return
		}
	}
}

// refresh обновляет цели по всем активным аккаунтам.
// Аккаунты независимы: ошибка одного не мешает остальным.
func (s *CheckinScheduler) refresh(ctx context.Context) {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active accounts", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, account := range accounts {
		wg.Add(1)
		go func(account *model.Account) {
			defer wg.Done()
			s.refreshAccount(ctx, account)
		}(account)
	}
	wg.Wait()

	if up := s.Upcoming(); up != nil {
		s.logger.Info("Next check-in",
			zap.Strings("accounts", up.Aliases),
			zap.String("lesson", up.Title),
			zap.Time("trigger_at", up.TriggerTime),
			zap.Duration("in", up.TriggerTime.Sub(s.now()).Truncate(time.Second)))
	} else {
		s.logger.Info("No upcoming check-ins scheduled")
	}
}

// refreshAccount подтягивает расписание одного аккаунта и заводит цели
func (s *CheckinScheduler) refreshAccount(ctx context.Context, account *model.Account) {
	if account.Token == "" || account.SigningKey == "" {
		s.logger.Warn("Skipping account: token or signing key missing",
			zap.String("alias", account.Alias))
		return
	}

	data, err := s.catalog.GetUserData(ctx, account.Token)
	if err != nil {
		s.logger.Error("Failed to fetch schedule, skipping account for this cycle",
			zap.String("alias", account.Alias),
			zap.Error(err))
		return
	}

	studentID := data.StudentID
	if studentID == "" {
		// Без studentId из токена ключ всё равно должен быть уникален
		// в пределах аккаунта
		studentID = fmt.Sprintf("acct%d", account.ID)
	}

	added := 0
	for _, lesson := range data.Lessons {
		if s.addTarget(account, studentID, lesson) {
			added++
		}
	}

	if added > 0 {
		s.logger.Info("Scheduled new check-in targets",
			zap.String("alias", account.Alias),
			zap.Int("count", added))
	}
}

// addTarget заводит цель для занятия, если его ключ ещё не встречался.
// Возвращает true если цель добавлена.
func (s *CheckinScheduler) addTarget(account *model.Account, studentID string, lesson *model.Lesson) bool {
	// Отметка за минуту до начала, размазанная случайным сдвигом
	// +/-60с чтобы не бить в API синхронно со всех аккаунтов
	triggerTime := lesson.StartTime.Add(-time.Minute).Add(s.jitter())

	key := lesson.Key(studentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fired[key]; ok {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}

	// Слишком давно прошедшая цель недостижима, молча пропускаем
	if !triggerTime.After(s.now().Add(-graceWindow)) {
		return false
	}

	s.pending[key] = &target{
		key:         key,
		triggerTime: triggerTime,
		lesson:      lesson,
		account:     account,
		studentID:   studentID,
	}
	return true
}

// runFireLoop раз в секунду отправляет созревшие цели
func (s *CheckinScheduler) runFireLoop(ctx context.Context) {
	ticker := time.NewTicker(fireTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fireDue(ctx)
		case <-s.stopChan:
			s.logger.Info("Fire loop stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Fire loop cancelled")
			return
		}
	}
}

// fireDue забирает созревшие цели и отправляет каждую в своей горутине.
// Ключ помечается fired до отправки: даже медленная или упавшая отправка
// не даст второй попытки.
func (s *CheckinScheduler) fireDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*target
	for key, t := range s.pending {
		if !t.triggerTime.After(now) {
			due = append(due, t)
			delete(s.pending, key)
			s.fired[key] = struct{}{}
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.inflight.Add(1)
		go func(t *target) {
			defer s.inflight.Done()
			s.fire(ctx, t)
		}(t)
	}
}

// fire выполняет одну отметку. Итог логируется и уведомляется внутри
// Submitter, повторов не будет в любом случае.
func (s *CheckinScheduler) fire(ctx context.Context, t *target) {
	s.logger.Info("Firing check-in",
		zap.String("alias", t.account.Alias),
		zap.String("lesson", t.lesson.Title),
		zap.Time("lesson_start", t.lesson.StartTime))

	webhookURL := ""
	if t.account.WebhookURL != nil {
		webhookURL = *t.account.WebhookURL
	}

	s.submitter.PerformCheckIn(ctx, &model.CheckinRequest{
		Token:      t.account.Token,
		SigningKey: t.account.SigningKey,
		StudentID:  t.studentID,
		Alias:      t.account.Alias,
		Lesson:     t.lesson,
		WebhookURL: webhookURL,
		ChatID:     t.account.ChatID,
	})
}

// Upcoming возвращает ближайшее будущее срабатывание, nil если очередь
// пуста. Алиасы группируются по одинаковому занятию (название + начало).
func (s *CheckinScheduler) Upcoming() *Upcoming {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var closest *target
	for _, t := range s.pending {
		if !t.triggerTime.After(now) {
			continue
		}
		if closest == nil || t.triggerTime.Before(closest.triggerTime) {
			closest = t
		}
	}
	if closest == nil {
		return nil
	}

	aliasSet := make(map[string]struct{})
	for _, t := range s.pending {
		if t.lesson.Title == closest.lesson.Title &&
			t.lesson.StartTime.Equal(closest.lesson.StartTime) &&
			t.triggerTime.After(now) {
			aliasSet[t.account.Alias] = struct{}{}
		}
	}

	aliases := make([]string, 0, len(aliasSet))
	for alias := range aliasSet {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	return &Upcoming{
		Aliases:     aliases,
		Title:       closest.lesson.Title,
		LessonStart: closest.lesson.StartTime,
		TriggerTime: closest.triggerTime,
	}
}

// PendingCount количество целей в очереди
func (s *CheckinScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
