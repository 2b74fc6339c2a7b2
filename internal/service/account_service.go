package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/Freeeeeet/checkin_bot/internal/repository"
	"github.com/Freeeeeet/checkin_bot/internal/seats"
	"go.uber.org/zap"
)

// Минимальная длина сырого токена: всё короче - явно не JWT сервиса
const minTokenLength = 50

type AccountService struct {
	accountRepo *repository.AccountRepository
	client      *seats.Client
	logger      *zap.Logger
}

func NewAccountService(
	accountRepo *repository.AccountRepository,
	client *seats.Client,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		client:      client,
		logger:      logger,
	}
}

// ValidateToken грубая проверка формата bearer-токена
func ValidateToken(token string) bool {
	t := strings.TrimSpace(token)
	t = strings.TrimPrefix(t, "Bearer ")
	return len(t) > minTokenLength
}

// AddAccount сохраняет новый аккаунт и сразу тянет его ключ подписи.
// Недоступный ключ не блокирует добавление: аккаунт сохраняется без ключа,
// автоотметка для него упадёт локально, ключ можно дотянуть позже.
func (s *AccountService) AddAccount(ctx context.Context, chatID int64, alias, token string) (*model.Account, error) {
	if !ValidateToken(token) {
		return nil, fmt.Errorf("invalid token format")
	}

	existing, err := s.accountRepo.GetByAlias(ctx, chatID, alias)
	if err != nil {
		return nil, fmt.Errorf("check alias: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("account %q already exists", alias)
	}

	account := &model.Account{
		ChatID:   chatID,
		Alias:    alias,
		Token:    strings.TrimSpace(token),
		IsActive: true,
	}

	signingKey, err := s.client.FetchSigningKey(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to fetch signing key, account saved without it",
			zap.String("alias", alias),
			zap.Error(err))
	} else {
		account.SigningKey = signingKey
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account added",
		zap.String("alias", alias),
		zap.Int64("chat_id", chatID),
		zap.Bool("has_signing_key", account.SigningKey != ""))

	return account, nil
}

// RefreshSigningKey повторно запрашивает и сохраняет ключ подписи
func (s *AccountService) RefreshSigningKey(ctx context.Context, account *model.Account) error {
	signingKey, err := s.client.FetchSigningKey(ctx, account.Token)
	if err != nil {
		return fmt.Errorf("refresh signing key: %w", err)
	}

	if err := s.accountRepo.UpdateSigningKey(ctx, account.ID, signingKey); err != nil {
		return err
	}

	account.SigningKey = signingKey
	return nil
}

// ListAccounts возвращает аккаунты чата
func (s *AccountService) ListAccounts(ctx context.Context, chatID int64) ([]*model.Account, error) {
	return s.accountRepo.ListByChat(ctx, chatID)
}

// GetAccount возвращает аккаунт чата по алиасу, nil если не найден
func (s *AccountService) GetAccount(ctx context.Context, chatID int64, alias string) (*model.Account, error) {
	return s.accountRepo.GetByAlias(ctx, chatID, alias)
}

// SetActive переключает участие аккаунта в автоотметке
func (s *AccountService) SetActive(ctx context.Context, chatID int64, alias string, isActive bool) error {
	account, err := s.accountRepo.GetByAlias(ctx, chatID, alias)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %q not found", alias)
	}
	return s.accountRepo.SetActive(ctx, account.ID, isActive)
}

// DeleteAccount удаляет аккаунт чата
func (s *AccountService) DeleteAccount(ctx context.Context, chatID int64, alias string) error {
	if err := s.accountRepo.Delete(ctx, chatID, alias); err != nil {
		return err
	}
	s.logger.Info("Account deleted", zap.String("alias", alias), zap.Int64("chat_id", chatID))
	return nil
}
