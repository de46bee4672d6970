package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/apperror"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.data[key], nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Increment(ctx context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.data[key] = "1"
	return 1, nil
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.ttls[key] = ttl
	return nil
}

func testLogger() logger.Logger {
	return logger.NewStructuredLogger(logger.Config{Level: "panic", ServiceName: "test"})
}

func newTestManager(t *testing.T, store outbound.KeyValueStore, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return NewManager(newTestCodec(t), store, testLogger(), cfg)
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newFakeStore(), ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, map[string]string{"role": "cdc"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := manager.Verify(ctx, signed, outbound.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Role != "cdc" {
		t.Errorf("role = %q, want cdc", claims.Role)
	}
	if claims.TokenType != outbound.TokenTypeAccess {
		t.Errorf("token type = %q, want access", claims.TokenType)
	}
}

func TestIssueEmptySubject(t *testing.T) {
	manager := newTestManager(t, newFakeStore(), ManagerConfig{})
	if _, err := manager.Issue("", outbound.TokenTypeAccess, nil); !apperror.IsCode(err, apperror.CodeInvalidToken) {
		t.Errorf("expected CodeInvalidToken, got %v", err)
	}
}

func TestIssuePair(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newFakeStore(), ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	pair, err := manager.IssuePair("user-1", "admin")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", pair.TokenType)
	}

	access, err := manager.Verify(ctx, pair.AccessToken, outbound.TokenTypeAccess)
	if err != nil {
		t.Fatalf("access token should verify: %v", err)
	}
	refresh, err := manager.Verify(ctx, pair.RefreshToken, outbound.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("refresh token should verify: %v", err)
	}
	if access.TokenID == refresh.TokenID {
		t.Error("access and refresh tokens should carry distinct jtis")
	}
}

func TestVerifyWrongType(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newFakeStore(), ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	refresh, err := manager.Issue("user-1", outbound.TokenTypeRefresh, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = manager.Verify(ctx, refresh, outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeTokenTypeInvalid) {
		t.Errorf("expected CodeTokenTypeInvalid, got %v", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	manager := newTestManager(t, newFakeStore(), ManagerConfig{})
	_, err := manager.Verify(context.Background(), "", outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeInvalidToken) {
		t.Errorf("expected CodeInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newFakeStore(), ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	// Issue in the past so the token is already expired when verified.
	manager.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = manager.Verify(ctx, signed, outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeTokenExpired) {
		t.Errorf("expected CodeTokenExpired, got %v", err)
	}
}

func TestRevokeThenVerify(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	manager := newTestManager(t, store, ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := manager.Verify(ctx, signed, outbound.TokenTypeAccess); err != nil {
		t.Fatalf("token should verify before revocation: %v", err)
	}

	revoked, err := manager.Revoke(ctx, signed, "logout")
	if err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if !revoked {
		t.Fatal("Revoke should report true for a live token")
	}

	_, err = manager.Verify(ctx, signed, outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeTokenRevoked) {
		t.Errorf("expected CodeTokenRevoked, got %v", err)
	}

	if len(store.data) != 1 {
		t.Fatalf("expected one blacklist entry, got %d", len(store.data))
	}
	for key, ttl := range store.ttls {
		if ttl <= 0 || ttl > 15*time.Minute {
			t.Errorf("blacklist TTL for %s should match remaining lifetime, got %v", key, ttl)
		}
	}
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	manager := newTestManager(t, store, ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	manager.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	manager.WithClock(time.Now)

	revoked, err := manager.Revoke(ctx, signed, "logout")
	if err != nil {
		t.Fatalf("revoking an expired token should not error: %v", err)
	}
	if !revoked {
		t.Error("revoking an expired token is a no-op success")
	}
	if len(store.data) != 0 {
		t.Error("expired tokens should not produce blacklist entries")
	}
}

func TestRevokeGarbage(t *testing.T) {
	manager := newTestManager(t, newFakeStore(), ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	revoked, err := manager.Revoke(context.Background(), "not-a-token", "logout")
	if err != nil {
		t.Errorf("revoking garbage should not error: %v", err)
	}
	if revoked {
		t.Error("garbage cannot be revoked")
	}
}

func TestBlacklistDisabled(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, nil, ManagerConfig{BlacklistEnabled: false, FailSecure: true})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	revoked, err := manager.Revoke(ctx, signed, "logout")
	if err != nil || revoked {
		t.Errorf("Revoke with blacklist disabled should be (false, nil), got (%v, %v)", revoked, err)
	}

	// Verification skips the blacklist entirely, nil store included.
	if _, err := manager.Verify(ctx, signed, outbound.TokenTypeAccess); err != nil {
		t.Errorf("Verify should succeed with blacklist disabled: %v", err)
	}
}

func TestFailSecureStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.err = errors.New("connection refused")
	manager := newTestManager(t, store, ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = manager.Verify(ctx, signed, outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeInternalService) {
		t.Errorf("fail-secure verification should surface an internal error, got %v", err)
	}

	revoked, err := manager.Revoke(ctx, signed, "logout")
	if revoked || !apperror.IsCode(err, apperror.CodeInternalService) {
		t.Errorf("fail-secure revocation should surface an internal error, got (%v, %v)", revoked, err)
	}
}

func TestFailOpenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.err = errors.New("connection refused")
	manager := newTestManager(t, store, ManagerConfig{BlacklistEnabled: true, FailSecure: false})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := manager.Verify(ctx, signed, outbound.TokenTypeAccess); err != nil {
		t.Errorf("fail-open verification should accept the token, got %v", err)
	}

	revoked, err := manager.Revoke(ctx, signed, "logout")
	if revoked || err != nil {
		t.Errorf("fail-open revocation should be (false, nil), got (%v, %v)", revoked, err)
	}
}

func TestNilStoreFailSecure(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, nil, ManagerConfig{BlacklistEnabled: true, FailSecure: true})

	signed, err := manager.Issue("user-1", outbound.TokenTypeAccess, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = manager.Verify(ctx, signed, outbound.TokenTypeAccess)
	if !apperror.IsCode(err, apperror.CodeInternalService) {
		t.Errorf("verification without a store under fail-secure should error, got %v", err)
	}
}
