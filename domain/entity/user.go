package entity

import (
	"time"

	"github.com/carelane/authcore/domain/role"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

type User struct {
	ID           string     `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         role.Role  `json:"role"`
	Status       UserStatus `json:"status"`
	// TokensValidFrom is the bulk-revocation watermark: tokens issued before it
	// are rejected even if never individually blacklisted.
	TokensValidFrom *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
