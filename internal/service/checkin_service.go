package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/Freeeeeet/checkin_bot/internal/notify"
	"github.com/Freeeeeet/checkin_bot/internal/seats"
	"go.uber.org/zap"
)

// Причина отметки, единственная которую умеет бот
const checkInReason = "Ibeacon"

// Timestamp запроса: локальное время без долей секунд и без таймзоны,
// ровно как его шлёт мобильное приложение
const timestampLayout = "2006-01-02T15:04:05"

// CheckinService отправляет одну авторизованную отметку за вызов.
// Ретраев нет: за "не больше одной отметки на занятие" отвечает
// планировщик, повтор POST мог бы дать дубль на сервере.
type CheckinService struct {
	client   *seats.Client
	notifier notify.Notifier
	logger   *zap.Logger

	// Подменяются в тестах
	now        func() time.Time
	pickBeacon func(n int) int
}

func NewCheckinService(client *seats.Client, notifier notify.Notifier, logger *zap.Logger) *CheckinService {
	return &CheckinService{
		client:     client,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		pickBeacon: rand.Intn,
	}
}

// PerformCheckIn выполняет одну попытку отметки и уведомляет об итоге.
// Локальные ошибки конфигурации (нет ключа подписи, нет маячков) дают
// код 0 без похода в сеть.
func (s *CheckinService) PerformCheckIn(ctx context.Context, req *model.CheckinRequest) *model.CheckinOutcome {
	outcome := s.performCheckIn(ctx, req)

	s.notifier.Notify(ctx, notify.Event{
		Success:     outcome.Success,
		LessonTitle: req.Lesson.Title,
		StudentID:   req.StudentID,
		Alias:       req.Alias,
		Error:       outcome.Error,
		CheckinCode: outcome.CheckinCode,
		Timestamp:   s.now(),
		WebhookURL:  req.WebhookURL,
		ChatID:      req.ChatID,
	})

	if outcome.Success {
		s.logger.Info("Check-in succeeded",
			zap.String("lesson", req.Lesson.Title),
			zap.String("student_id", req.StudentID),
			zap.String("checkin_code", outcome.CheckinCode))
	} else {
		s.logger.Warn("Check-in failed",
			zap.String("lesson", req.Lesson.Title),
			zap.String("student_id", req.StudentID),
			zap.Int("code", outcome.Code),
			zap.String("error", outcome.Error))
	}

	return outcome
}

func (s *CheckinService) performCheckIn(ctx context.Context, req *model.CheckinRequest) *model.CheckinOutcome {
	if req.SigningKey == "" {
		return &model.CheckinOutcome{
			Code:  0,
			Error: "Missing signing key. Token configuration may be incomplete.",
		}
	}

	if len(req.Lesson.Beacons) == 0 {
		return &model.CheckinOutcome{
			Code:  0,
			Error: "No iBeacon data available for this lesson.",
		}
	}

	beacon := req.Lesson.Beacons[s.pickBeacon(len(req.Lesson.Beacons))]

	timestamp := s.now().Format(timestampLayout)
	timetableID := strconv.FormatInt(req.Lesson.TimetableID, 10)
	studentScheduleID := strconv.FormatInt(req.Lesson.StudentScheduleID, 10)

	// CheckInInput для iBeacon-отметки всегда пустой, в строку и payload
	// он попадает как пустая строка и null соответственно
	fpInput := timestamp + timetableID + studentScheduleID + checkInReason
	fingerprint, err := seats.ComputeFingerprint(fpInput, req.SigningKey)
	if err != nil {
		return &model.CheckinOutcome{
			Code:  0,
			Error: "Invalid signing key: " + err.Error(),
		}
	}

	payload := &seats.CheckinPayload{
		Timestamp:         timestamp,
		TimetableID:       req.Lesson.TimetableID,
		StudentScheduleID: req.Lesson.StudentScheduleID,
		CheckInReason:     checkInReason,
		UUID:              beacon.UUID.String(),
		Longitude:         "",
		Latitude:          "",
		LocationName:      "",
		CheckInInput:      nil,
	}

	status, body, err := s.client.CheckIn(ctx, req.Token, fingerprint, payload)
	if err != nil {
		return &model.CheckinOutcome{Code: 0, Error: err.Error()}
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return &model.CheckinOutcome{
			Code:  status,
			Error: strings.TrimSpace(string(body)),
		}
	}

	outcome := &model.CheckinOutcome{Success: true, Code: status}

	var resp struct {
		CheckinCode string `json:"checkinCode"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		outcome.CheckinCode = resp.CheckinCode
	}
	if outcome.CheckinCode == "" {
		// Сервер не вернул код - отдаём код, известный из расписания
		outcome.CheckinCode = req.Lesson.CheckinCode
	}

	return outcome
}
