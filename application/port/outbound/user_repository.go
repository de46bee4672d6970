package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/carelane/authcore/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the identity store owned by the auth service. Relying
// services never touch it; they authenticate from claims alone.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	// SetTokensValidFrom moves the bulk-revocation watermark; every token
	// issued before it becomes invalid with a single write.
	SetTokensValidFrom(ctx context.Context, id string, from time.Time) error
}
