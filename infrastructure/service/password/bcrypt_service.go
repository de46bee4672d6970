package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordService hashes credentials with bcrypt. bcrypt salts each hash
// itself and compares in constant time, so no extra handling is needed here.
type BcryptPasswordService struct {
	cost int
}

func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

func (s *BcryptPasswordService) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches hash. A malformed or foreign
// hash verifies as false; this method never returns an error for bad input so
// callers cannot leak hash state through error branches.
func (s *BcryptPasswordService) VerifyPassword(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}
