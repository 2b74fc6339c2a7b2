package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Beacon описывает iBeacon-маячок рядом с аудиторией
type Beacon struct {
	UUID  uuid.UUID `json:"uuid"`
	Major int       `json:"major"`
	Minor int       `json:"minor"`
}

// Lesson одно занятие из расписания, доступное для отметки посещаемости.
// StartTime хранится в локальном времени процесса: API отдаёт naive-метки
// без таймзоны, и та же локальная зона используется при формировании
// timestamp запроса.
type Lesson struct {
	Title             string    `json:"title"`
	Room              string    `json:"room"`
	StartTime         time.Time `json:"start_time"`
	TimetableID       int64     `json:"timetable_id"`
	StudentScheduleID int64     `json:"student_schedule_id"`
	CheckinCode       string    `json:"checkin_code"` // известный заранее код, fallback для ответа
	Beacons           []Beacon  `json:"beacons"`
}

// Key ключ дедупликации занятия для планировщика.
// Использует только studentID и TimetableID: StudentScheduleID участвует
// в payload запроса, но не в идентичности занятия.
func (l *Lesson) Key(studentID string) string {
	return fmt.Sprintf("%s-%d", studentID, l.TimetableID)
}
