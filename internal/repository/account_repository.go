package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/Freeeeeet/checkin_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	*base.Repository
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{Repository: base.NewRepository(pool)}
}

const accountColumns = "id, chat_id, alias, token, signing_key, webhook_url, is_active, created_at"

func scanAccount(row interface{ Scan(...interface{}) error }) (*model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID,
		&account.ChatID,
		&account.Alias,
		&account.Token,
		&account.SigningKey,
		&account.WebhookURL,
		&account.IsActive,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Create создаёт новый аккаунт
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (chat_id, alias, token, signing_key, webhook_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		account.ChatID,
		account.Alias,
		account.Token,
		account.SigningKey,
		account.WebhookURL,
		account.IsActive,
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// GetByID получает аккаунт по ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

// GetByAlias получает аккаунт чата по алиасу
func (r *AccountRepository) GetByAlias(ctx context.Context, chatID int64, alias string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE chat_id = $1 AND alias = $2`

	account, err := scanAccount(r.QueryRow(ctx, query, chatID, alias))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by alias: %w", err)
	}

	return account, nil
}

// ListByChat получает все аккаунты чата
func (r *AccountRepository) ListByChat(ctx context.Context, chatID int64) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE chat_id = $1 ORDER BY alias`

	rows, err := r.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list accounts by chat: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// ListActive получает все активные аккаунты для планировщика
func (r *AccountRepository) ListActive(ctx context.Context) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_active = true ORDER BY alias`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active accounts: %w", err)
	}

	return accounts, nil
}

// UpdateSigningKey обновляет ключ подписи аккаунта
func (r *AccountRepository) UpdateSigningKey(ctx context.Context, id int64, signingKey string) error {
	affected, err := r.ExecAffected(ctx, `UPDATE accounts SET signing_key = $1 WHERE id = $2`, signingKey, id)
	if err != nil {
		return fmt.Errorf("update signing key: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found")
	}
	return nil
}

// SetActive включает или выключает аккаунт в планировщике
func (r *AccountRepository) SetActive(ctx context.Context, id int64, isActive bool) error {
	affected, err := r.ExecAffected(ctx, `UPDATE accounts SET is_active = $1 WHERE id = $2`, isActive, id)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found")
	}
	return nil
}

// Delete удаляет аккаунт чата по алиасу
func (r *AccountRepository) Delete(ctx context.Context, chatID int64, alias string) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM accounts WHERE chat_id = $1 AND alias = $2`, chatID, alias)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found")
	}
	return nil
}
