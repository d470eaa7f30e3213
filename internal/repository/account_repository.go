package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// AccountRepository handles persistence of linked credential accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs the repository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = "id, user_id, provider_id, account_id, password, access_token, refresh_token, scope, created_at, updated_at"

// Create persists a linked account. The (provider_id, account_id) unique
// pair surfaces ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `INSERT INTO accounts (id, user_id, provider_id, account_id, password, access_token, refresh_token, scope, created_at, updated_at)
        VALUES (:id, :user_id, :provider_id, :account_id, :password, :access_token, :refresh_token, :scope, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return translateConstraint(err)
	}
	return nil
}

// FindCredential returns the password-provider account for a user.
func (r *AccountRepository) FindCredential(ctx context.Context, userID string) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE user_id = $1 AND provider_id = $2 LIMIT 1", accountColumns)
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, userID, models.ProviderCredential); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListByUser returns every linked account for a user.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE user_id = $1 ORDER BY created_at ASC", accountColumns)
	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, query, userID); err != nil {
		return nil, fmt.Errorf("list user accounts: %w", err)
	}
	return accounts, nil
}

// FindByProviderAccount returns the account owning a (provider, account) pair.
func (r *AccountRepository) FindByProviderAccount(ctx context.Context, providerID, accountID string) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE provider_id = $1 AND account_id = $2", accountColumns)
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, providerID, accountID); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateTokens refreshes the provider tokens on an existing account.
func (r *AccountRepository) UpdateTokens(ctx context.Context, id string, accessToken, refreshToken, scope *string) error {
	const query = `UPDATE accounts SET access_token = $2, refresh_token = $3, scope = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, scope, time.Now().UTC()); err != nil {
		return fmt.Errorf("update account tokens: %w", err)
	}
	return nil
}
