package models

import (
	"time"

	"hobbyshelf/internal/identity"
)

type Hobby struct {
	ID          int             `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Category    string          `json:"category" db:"category"`
	Description string          `json:"description" db:"description"`
	IsPublic    bool            `json:"is_public" db:"is_public"`
	OwnerID     identity.UserID `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`

	// Owner is populated on reads that join the users table.
	Owner *PublicProfile `json:"owner,omitempty"`
}
