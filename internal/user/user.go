// Package user provides user accounts for the Chatdeck platform.
package user

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrUserNotFound = errors.New("user: not found")
	ErrEmailTaken   = errors.New("user: email already registered")
)

// User represents a platform account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store persists user accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}
