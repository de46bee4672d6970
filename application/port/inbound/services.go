package inbound

import (
	"context"
	"time"
)

// PasswordService hashes and verifies credentials.
// VerifyPassword reports false for malformed or foreign hashes instead of erroring.
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// RateLimitService covers both request throttling and brute-force lockout.
// Throttling fails open: store faults are logged inside the implementation and
// never block a request. The failed-auth counters use a separate key namespace
// so an identifier hitting its request quota cannot trip the lockout.
type RateLimitService interface {
	IsLimited(ctx context.Context, identifier string, maxRequests int, window time.Duration) bool
	IsAuthRateLimited(ctx context.Context, identifier string, maxAttempts int) bool
	RecordFailedAuth(ctx context.Context, identifier string, lockout time.Duration)
	ClearFailedAuth(ctx context.Context, identifier string)
}
