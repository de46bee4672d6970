package validator

import (
	"net/mail"
	"strings"
)

func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func ValidatePassword(password string) bool {
	return len(password) >= 8
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}
