package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/Freeeeeet/checkin_bot/internal/seats"
	"go.uber.org/zap"
)

// ScheduleService собирает сводку по аккаунту: данные из токена,
// профиль и расписание на неделю
type ScheduleService struct {
	client *seats.Client
	logger *zap.Logger
}

func NewScheduleService(client *seats.Client, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{client: client, logger: logger}
}

// GetUserData получает сводку по токену.
// Профиль дополняет данные из токена, его недоступность не фатальна;
// без расписания сводка смысла не имеет - это ошибка.
func (s *ScheduleService) GetUserData(ctx context.Context, token string) (*model.UserData, error) {
	claims, err := seats.DecodeToken(token)
	if err != nil {
		s.logger.Debug("Failed to decode token claims", zap.Error(err))
	}

	data := &model.UserData{
		StudentID:    claims.StudentID,
		Name:         claims.Name,
		Email:        claims.Email,
		TenantID:     claims.TenantID,
		TokenExpires: claims.ExpiresAt,
	}

	profile, err := s.client.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to fetch profile", zap.Error(err))
	} else {
		if data.StudentID == "" {
			data.StudentID = profile.StudentID
		}
		if data.Name == "" {
			data.Name = profile.Name
		}
		if data.Email == "" {
			data.Email = profile.Email
		}
	}

	lessons, err := s.client.FetchEvents(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get user data: %w", err)
	}
	data.Lessons = lessons

	return data, nil
}
