package entity

import (
	"time"
)

// User is the aggregate root for the identity side of the domain.
// Passwords are stored as bcrypt hashes in Password field.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserRef is the public projection of a user embedded in other resources.
// Email is only filled where the reader is allowed to see it (attendee lists).
type UserRef struct {
	ID       string
	Username string
	Email    string
}
