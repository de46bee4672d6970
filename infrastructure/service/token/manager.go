package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/apperror"
	"github.com/carelane/authcore/domain/valueobject"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

const revokedKeyPrefix = "revoked_token:"

// Compile-time check that Manager satisfies the outbound port.
var _ outbound.TokenService = (*Manager)(nil)

// ManagerConfig carries the lifecycle knobs. FailSecure decides what happens
// when the revocation store is unreachable: reject tokens (true, the default
// posture) or accept them (false).
type ManagerConfig struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BlacklistEnabled bool
	FailSecure       bool
}

// Manager drives a token through Issued -> Active -> (Revoked | Expired).
// Revocation is explicit via the store; expiry is implicit from the exp claim.
type Manager struct {
	codec  *Codec
	store  outbound.KeyValueStore
	logger logger.Logger
	cfg    ManagerConfig
	now    func() time.Time
}

func NewManager(codec *Codec, store outbound.KeyValueStore, log logger.Logger, cfg ManagerConfig) *Manager {
	return &Manager{
		codec:  codec,
		store:  store,
		logger: log,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock substitutes the time source. Tests use this to cross expiry
// boundaries without sleeping.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) ttlFor(tokenType outbound.TokenType) time.Duration {
	switch tokenType {
	case outbound.TokenTypeRefresh:
		return m.cfg.RefreshTokenTTL
	default:
		return m.cfg.AccessTokenTTL
	}
}

func (m *Manager) Issue(subject string, tokenType outbound.TokenType, extra map[string]string) (string, error) {
	if subject == "" {
		return "", apperror.InvalidToken("subject cannot be empty")
	}

	now := m.now()
	p := Payload{
		Subject:   subject,
		TokenType: tokenType,
		Role:      extra["role"],
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttlFor(tokenType)),
	}

	signed, err := m.codec.Encode(p)
	if err != nil {
		return "", apperror.InternalService("failed to issue token", err)
	}
	return signed, nil
}

func (m *Manager) IssuePair(subject, roleName string) (*valueobject.TokenPair, error) {
	extra := map[string]string{}
	if roleName != "" {
		extra["role"] = roleName
	}

	access, err := m.Issue(subject, outbound.TokenTypeAccess, extra)
	if err != nil {
		return nil, err
	}
	refresh, err := m.Issue(subject, outbound.TokenTypeRefresh, extra)
	if err != nil {
		return nil, err
	}
	return valueobject.NewTokenPair(access, refresh), nil
}

// Verify decodes the token, enforces the expected type, and checks the
// blacklist. Codec failures are downgraded to the authentication taxonomy so
// malformed input never surfaces as an internal fault.
func (m *Manager) Verify(ctx context.Context, tokenString string, expected outbound.TokenType) (*outbound.Claims, error) {
	if tokenString == "" {
		return nil, apperror.InvalidToken("token cannot be empty")
	}

	claims, err := m.codec.Decode(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpired):
			return nil, apperror.TokenExpired()
		default:
			return nil, apperror.InvalidToken(err.Error())
		}
	}

	if claims.TokenType != expected {
		return nil, apperror.TokenTypeInvalid(string(expected), string(claims.TokenType))
	}

	if m.cfg.BlacklistEnabled {
		if claims.TokenID == "" {
			return nil, apperror.InvalidToken("token is missing the required jti claim")
		}
		revoked, err := m.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, apperror.TokenRevoked()
		}
	}

	return claims, nil
}

// Revoke blacklists a token for the remainder of its lifetime. The token is
// decoded without verification: an expired or tampered token has nothing left
// to block, so revoking it is a no-op success or a quiet failure.
func (m *Manager) Revoke(ctx context.Context, tokenString, reason string) (bool, error) {
	if !m.cfg.BlacklistEnabled {
		return false, nil
	}

	claims, err := m.codec.DecodeUnverified(tokenString)
	if err != nil || claims.TokenID == "" || claims.ExpiresAt.IsZero() {
		return false, nil
	}

	remaining := claims.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		// Already expired: nothing to block, no store entry needed.
		return true, nil
	}

	if m.store == nil {
		return m.revocationUnavailable(ctx, claims.TokenID, fmt.Errorf("revocation store not configured"))
	}
	if err := m.store.Set(ctx, revokedKeyPrefix+claims.TokenID, reason, remaining); err != nil {
		return m.revocationUnavailable(ctx, claims.TokenID, err)
	}

	m.logger.Info(ctx, "token revoked", map[string]interface{}{
		"token_id": claims.TokenID,
		"reason":   reason,
	})
	return true, nil
}

func (m *Manager) revocationUnavailable(ctx context.Context, tokenID string, cause error) (bool, error) {
	m.logger.Error(ctx, "revocation store unavailable", cause, map[string]interface{}{
		"token_id": tokenID,
	})
	if m.cfg.FailSecure {
		return false, apperror.InternalService("token revocation service unavailable", cause)
	}
	return false, nil
}

// IsRevoked checks the blacklist for a token ID. Under fail-secure an
// unreachable store is an error, so callers reject the token rather than
// accept one they cannot vouch for; fail-open treats it as not revoked.
func (m *Manager) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !m.cfg.BlacklistEnabled {
		return false, nil
	}

	if m.store == nil {
		if m.cfg.FailSecure {
			return false, apperror.InternalService("token validation service unavailable", nil)
		}
		return false, nil
	}

	exists, err := m.store.Exists(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		m.logger.Error(ctx, "failed to check token revocation status", err, map[string]interface{}{
			"token_id": tokenID,
		})
		if m.cfg.FailSecure {
			return false, apperror.InternalService("token validation service unavailable", err)
		}
		return false, nil
	}
	return exists, nil
}
