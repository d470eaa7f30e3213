package models

import "time"

// ProviderCredential is the provider id for password-based accounts.
const ProviderCredential = "credential"

// Account is a linked credential or provider identity for a user. The
// (provider_id, account_id) pair is unique per provider.
type Account struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ProviderID   string    `db:"provider_id" json:"provider_id"`
	AccountID    string    `db:"account_id" json:"account_id"`
	Password     *string   `db:"password" json:"-"`
	AccessToken  *string   `db:"access_token" json:"-"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	Scope        *string   `db:"scope" json:"scope,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
