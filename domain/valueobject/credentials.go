package valueobject

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Credentials is a validated email/password pair submitted at login.
type Credentials struct {
	email    string
	password string
}

func NewCredentials(email, password string) (*Credentials, error) {
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}
	return &Credentials{email: email, password: password}, nil
}

func (c *Credentials) Email() string {
	return c.email
}

func (c *Credentials) Password() string {
	return c.password
}
