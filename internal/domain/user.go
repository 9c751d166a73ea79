// Package domain contains entities without logic, just meta-data and validation.
package domain

import (
	"errors"
	"time"
)

const MaxUsernameLen = 36

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

type UserID int

type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// The id is assigned by the store on insert.
func NewUser(username, password, name, avatarURL string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{
		Username:  username,
		Password:  password,
		Name:      name,
		AvatarURL: avatarURL,
	}, nil
}
