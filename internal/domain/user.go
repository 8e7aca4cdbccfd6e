package domain

import (
	"context"
	"time"
)

// User is a registered demo account.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines the persistence operations registration needs.
// Create must return ErrDuplicateEmail when the storage-level unique
// constraint on email rejects the insert.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	EmailExists(ctx context.Context, email string) (bool, error)
}
