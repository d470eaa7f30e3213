package models

import "time"

// Verification is a short-lived challenge, keyed by identifier (usually an
// email address). Consumed rows are deleted; expired rows are inert.
type Verification struct {
	ID         string    `db:"id" json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	Value      string    `db:"value" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
