package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carelane/authcore/domain/role"
)

func testRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestLimitMax:    100,
		RequestLimitWindow: time.Minute,
		LoginLimitMax:      10,
		LoginLimitWindow:   15 * time.Minute,
	}
}

func TestRateLimitPassesThrough(t *testing.T) {
	limits := &stubRateLimits{}
	m := NewRateLimitMiddleware(limits, testGatewayLogger(), testRateLimitConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/things", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	rec := httptest.NewRecorder()
	m.RateLimit(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "general:ip:192.0.2.10", limits.lastIdentifier)
	assert.Equal(t, 100, limits.lastLimit)
}

func TestRateLimitLoginBudget(t *testing.T) {
	limits := &stubRateLimits{}
	m := NewRateLimitMiddleware(limits, testGatewayLogger(), testRateLimitConfig())

	for _, path := range []string{"/v1/auth/login", "/v1/auth/refresh"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "192.0.2.10:51234"
		rec := httptest.NewRecorder()
		m.RateLimit(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, "login:ip:192.0.2.10", limits.lastIdentifier, "path %s", path)
		assert.Equal(t, 10, limits.lastLimit, "credential endpoints get the tight budget")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	limits := &stubRateLimits{limited: true}
	m := NewRateLimitMiddleware(limits, testGatewayLogger(), testRateLimitConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/things", nil)
	rec := httptest.NewRecorder()
	m.RateLimit(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimitUsesPrincipalBucket(t *testing.T) {
	limits := &stubRateLimits{}
	m := NewRateLimitMiddleware(limits, testGatewayLogger(), testRateLimitConfig())

	principal := &Principal{ID: "u1", Role: role.Staff}
	req := httptest.NewRequest(http.MethodGet, "/v1/things", nil)
	req = req.WithContext(context.WithValue(req.Context(), principalKey, principal))
	rec := httptest.NewRecorder()
	m.RateLimit(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, "general:user:u1", limits.lastIdentifier, "authenticated traffic is bucketed per user")
}
