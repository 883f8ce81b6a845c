package models

import "time"

type UserRole string

const (
	UserRoleClient   UserRole = "CLIENT"
	UserRoleProvider UserRole = "PROVIDER"
	UserRoleAdmin    UserRole = "ADMIN"
)

// Roles lists every role in display order.
var Roles = []UserRole{UserRoleClient, UserRoleProvider, UserRoleAdmin}

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleClient, UserRoleProvider, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Role      UserRole `json:"role"`
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Account is the server-side user record of the development API.
type Account struct {
	User
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a refresh-token session held by the development API.
type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	RefreshTokenHash []byte
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}

// AuthResult is the body returned by register, login and refresh.
type AuthResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"` // seconds
	DeviceID     string `json:"deviceId,omitempty"`
	User         User   `json:"user"`
}

type RegisterInput struct {
	FirstName string   `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string   `json:"lastName" validate:"required,min=2,max=50"`
	Email     string   `json:"email" validate:"required,email,max=254"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	Phone     string   `json:"phone,omitempty" validate:"omitempty,max=20"`
	Role      UserRole `json:"role" validate:"required,oneof=CLIENT PROVIDER"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"deviceId,omitempty"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ProfileInput is the editable part of a user record.
type ProfileInput struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=20"`
}
