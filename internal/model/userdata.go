package model

import "time"

// UserData сводка по аккаунту: профиль из токена + расписание на неделю
type UserData struct {
	StudentID    string    `json:"student_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	TenantID     string    `json:"tenant_id"`
	TokenExpires time.Time `json:"token_expires"`
	Lessons      []*Lesson `json:"lessons"`
}
