package domain

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUsernameLength  = errors.New("username must be between 3 and 50 characters")
	ErrEmailRequired   = errors.New("email is required")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters")
)

// Role gates the elevated operations (delete, restock). The check itself
// happens at the router boundary, not inside the services.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

const MinPasswordLength = 6

// User is an authenticated actor. PasswordHash never leaves the service: it is
// excluded from JSON and stripped by the application layer's DTO mapping.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewUser creates a validated User with the default USER role. Email is
// normalized to lower case, username is trimmed. The password hash is produced
// by the application layer; the domain only stores it.
func NewUser(username, email, passwordHash string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 || len(username) > 50 {
		return nil, ErrUsernameLength
	}
	if email == "" {
		return nil, ErrEmailRequired
	}

	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
