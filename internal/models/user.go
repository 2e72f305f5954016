package models

import (
	"time"

	"hobbyshelf/internal/identity"
)

const DefaultProfilePicture = "default-profile.jpg"

// User represents an account. The password hash never leaves the server.
type User struct {
	ID             identity.UserID `json:"id" db:"id"`
	Username       string          `json:"username" db:"username"`
	Email          string          `json:"email" db:"email"`
	PasswordHash   string          `json:"-" db:"password"`
	ProfilePicture string          `json:"profile_picture" db:"profile_picture"`
	Bio            string          `json:"bio" db:"bio"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// PublicProfile is the reduced user shape embedded in other responses.
type PublicProfile struct {
	ID             identity.UserID `json:"id"`
	Username       string          `json:"username"`
	ProfilePicture string          `json:"profile_picture"`
}
