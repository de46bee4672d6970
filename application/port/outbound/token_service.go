package outbound

import (
	"context"
	"time"

	"github.com/carelane/authcore/domain/valueobject"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the verified payload of a token. A relying service can build an
// identity from it without a database round-trip.
type Claims struct {
	Subject   string
	Role      string
	TokenID   string
	TokenType TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService owns the token lifecycle: issuance, verification against the
// blacklist, and revocation. Implemented by infrastructure/service/token.
type TokenService interface {
	Issue(subject string, tokenType TokenType, extra map[string]string) (string, error)
	IssuePair(subject, roleName string) (*valueobject.TokenPair, error)
	Verify(ctx context.Context, tokenString string, expected TokenType) (*Claims, error)
	// Revoke blacklists a token for its remaining lifetime. It reports false
	// without an error when the token cannot be revoked and the system is not
	// fail-secure; under fail-secure an unreachable store surfaces as an error.
	Revoke(ctx context.Context, tokenString, reason string) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
