package seats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	DefaultHost = "01v2mobileapi.seats.cloud"

	// User-Agent мобильного приложения: сервер отсекает незнакомые клиенты
	userAgent = "SeatsMobile/1728493384 CFNetwork/1568.100.1.2.1 Darwin/24.0.0"

	profilePath  = "/api/v1/students/myself/profile"
	eventsPath   = "/api/v2/students/myself/events"
	settingsPath = "/api/v1/app/settingsextended"
	checkinPath  = "/api/v2/students/myself/checkin"

	// Ключ настройки, в которой сервер отдаёт зашифрованный ключ подписи
	signingKeySetting = "MobilePhone"
)

// Client клиент мобильного API SEAtS.
// GET-запросы ретраятся с экспоненциальным backoff, POST отметки - нет:
// повтор неидемпотентного авторизованного действия может дать дубль отметки.
type Client struct {
	host       string
	httpClient *http.Client
	logger     *zap.Logger

	// База backoff между ретраями (1s -> 2s -> 4s), в тестах уменьшается
	retryBase time.Duration
}

func NewClient(host string, logger *zap.Logger) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host: host,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:    logger,
		retryBase: time.Second,
	}
}

// setHeaders выставляет заголовки мобильного приложения.
// TenantId берётся из payload токена, при ошибке разбора - дефолтный.
func (c *Client) setHeaders(req *http.Request, token string) {
	claims, err := DecodeToken(token)
	if err != nil {
		c.logger.Debug("Failed to decode token, using default tenant", zap.Error(err))
	}

	req.Header.Set("Authorization", normalizeBearer(token))
	req.Header.Set("Abp.TenantId", claims.TenantID)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
}

// endpoint строит URL запроса. Хост можно задать вместе со схемой
// (http://...) для локальных стендов, иначе подставляется https.
func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(c.host, "http://") || strings.HasPrefix(c.host, "https://") {
		return c.host + path
	}
	return "https://" + c.host + path
}

// getJSON выполняет GET с ретраями и декодирует JSON-ответ в out.
// Ретраятся транспортные ошибки и 5xx, до 3 повторов.
func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, out interface{}) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(c.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
		if err != nil {
			return fmt.Errorf("build request %s: %w", path, err)
		}
		if query != nil {
			req.URL.RawQuery = query.Encode()
		}
		c.setHeaders(req, token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("get %s: %w", path, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("get %s: status %d", path, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	})
}

// Profile ответ эндпоинта профиля студента
type Profile struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// FetchProfile получает профиль студента
func (c *Client) FetchProfile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, token, profilePath, nil, &profile); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &profile, nil
}

// eventDTO занятие в том виде, в котором его отдаёт API
type eventDTO struct {
	Title             string      `json:"title"`
	RoomName          string      `json:"roomName"`
	Start             int64       `json:"start"` // unix-секунды
	TimeTableID       int64       `json:"timeTableId"`
	StudentScheduleID int64       `json:"studentScheduleId"`
	CheckinCode       string      `json:"checkinCode"`
	IBeaconData       []beaconDTO `json:"iBeaconData"`
}

type beaconDTO struct {
	UUID  string `json:"uuid"`
	Major int    `json:"major"`
	Minor int    `json:"minor"`
}

// FetchEvents получает расписание на ближайшие 7 дней.
// Маячки с невалидным UUID отбрасываются: в запрос отметки такой UUID
// всё равно не отправить.
func (c *Client) FetchEvents(ctx context.Context, token string) ([]*model.Lesson, error) {
	now := time.Now()
	query := url.Values{
		"startDate": {strconv.FormatInt(now.Unix(), 10)},
		"endDate":   {strconv.FormatInt(now.AddDate(0, 0, 7).Unix(), 10)},
	}

	var events []eventDTO
	if err := c.getJSON(ctx, token, eventsPath, query, &events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	lessons := make([]*model.Lesson, 0, len(events))
	for _, ev := range events {
		lesson := &model.Lesson{
			Title:             ev.Title,
			Room:              ev.RoomName,
			StartTime:         time.Unix(ev.Start, 0),
			TimetableID:       ev.TimeTableID,
			StudentScheduleID: ev.StudentScheduleID,
			CheckinCode:       ev.CheckinCode,
		}
		for _, b := range ev.IBeaconData {
			id, err := uuid.Parse(b.UUID)
			if err != nil {
				c.logger.Warn("Skipping beacon with invalid uuid",
					zap.String("uuid", b.UUID),
					zap.String("lesson", ev.Title))
				continue
			}
			lesson.Beacons = append(lesson.Beacons, model.Beacon{UUID: id, Major: b.Major, Minor: b.Minor})
		}
		lessons = append(lessons, lesson)
	}

	return lessons, nil
}

type settingDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FetchSigningKey получает зашифрованный ключ подписи аккаунта
// (настройка MobilePhone)
func (c *Client) FetchSigningKey(ctx context.Context, token string) (string, error) {
	var settings []settingDTO
	if err := c.getJSON(ctx, token, settingsPath, nil, &settings); err != nil {
		return "", fmt.Errorf("fetch settings: %w", err)
	}

	for _, s := range settings {
		if s.Key == signingKeySetting {
			return s.Value, nil
		}
	}
	return "", fmt.Errorf("setting %q not found", signingKeySetting)
}

// CheckinPayload тело POST-запроса отметки, имена полей диктует сервер
type CheckinPayload struct {
	Timestamp         string  `json:"Timestamp"`
	TimetableID       int64   `json:"TimetableId"`
	StudentScheduleID int64   `json:"StudentScheduleId"`
	CheckInReason     string  `json:"CheckInReason"`
	UUID              string  `json:"Uuid"`
	Longitude         string  `json:"Longitude"`
	Latitude          string  `json:"Latitude"`
	LocationName      string  `json:"LocationName"`
	CheckInInput      *string `json:"CheckInInput"`
}

// CheckIn отправляет один запрос отметки. Ровно одна сетевая попытка:
// идемпотентность на ключе занятия обеспечивает планировщик.
func (c *Client) CheckIn(ctx context.Context, token, fingerprint string, payload *CheckinPayload) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal checkin payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(checkinPath), bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build checkin request: %w", err)
	}
	req.URL.RawQuery = url.Values{"fp": {fingerprint}}.Encode()
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("checkin request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read checkin response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
