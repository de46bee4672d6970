package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/carelane/authcore/application/port/inbound"
	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

const (
	requestKeyPrefix    = "rate_limit:"
	failedAuthKeyPrefix = "failed_auth:"
)

var _ inbound.RateLimitService = (*Service)(nil)

// Service implements fixed-window request limiting and brute-force lockout on
// a shared key/value store. Throttling fails open on store faults: an
// infrastructure outage must never block legitimate traffic, which is the
// deliberate opposite of the fail-secure posture used for revocation checks.
//
// When no store is configured, fixed-window limiting falls back to an
// in-process timestamp list per identifier. The brute-force lockout has no
// in-memory fallback: counters must survive the process and be shared across
// replicas to be meaningful, so without a store it is disabled.
type Service struct {
	store  outbound.KeyValueStore
	logger logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	memory map[string][]time.Time
}

func NewService(store outbound.KeyValueStore, log logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
		now:    time.Now,
		memory: make(map[string][]time.Time),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IsLimited counts this request against the identifier's window and reports
// whether the window's budget is exhausted.
func (s *Service) IsLimited(ctx context.Context, identifier string, maxRequests int, window time.Duration) bool {
	if s.store == nil {
		return s.isLimitedInMemory(identifier, maxRequests, window)
	}

	key := fmt.Sprintf("%s%s:%d", requestKeyPrefix, identifier, int(window.Seconds()))
	count, err := s.store.Increment(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "rate limit check failed, failing open", err, map[string]interface{}{
			"identifier": identifier,
		})
		return false
	}
	if count == 1 {
		// First hit in the window owns the key's expiry.
		if err := s.store.Expire(ctx, key, window); err != nil {
			s.logger.Error(ctx, "failed to set rate limit window expiry", err, map[string]interface{}{
				"identifier": identifier,
			})
		}
	}
	return count > int64(maxRequests)
}

func (s *Service) isLimitedInMemory(identifier string, maxRequests int, window time.Duration) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.memory[identifier][:0]
	for _, t := range s.memory[identifier] {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= maxRequests {
		s.memory[identifier] = kept
		return true
	}
	s.memory[identifier] = append(kept, now)
	return false
}

// IsAuthRateLimited reports whether the identifier has accumulated enough
// failed authentication attempts to be locked out.
func (s *Service) IsAuthRateLimited(ctx context.Context, identifier string, maxAttempts int) bool {
	if s.store == nil {
		return false
	}

	value, err := s.store.Get(ctx, failedAuthKeyPrefix+identifier)
	if err != nil {
		s.logger.Error(ctx, "failed to read auth attempt counter, failing open", err, map[string]interface{}{
			"identifier": identifier,
		})
		return false
	}
	if value == "" {
		return false
	}
	attempts, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return attempts >= maxAttempts
}

// RecordFailedAuth bumps the failed-attempt counter and refreshes the lockout
// window. Each failure extends the lockout.
func (s *Service) RecordFailedAuth(ctx context.Context, identifier string, lockout time.Duration) {
	if s.store == nil {
		return
	}

	key := failedAuthKeyPrefix + identifier
	if _, err := s.store.Increment(ctx, key); err != nil {
		s.logger.Error(ctx, "failed to record auth attempt", err, map[string]interface{}{
			"identifier": identifier,
		})
		return
	}
	if err := s.store.Expire(ctx, key, lockout); err != nil {
		s.logger.Error(ctx, "failed to set auth lockout expiry", err, map[string]interface{}{
			"identifier": identifier,
		})
	}
}

// ClearFailedAuth resets the counter after a successful authentication,
// immediately unblocking the identifier.
func (s *Service) ClearFailedAuth(ctx context.Context, identifier string) {
	if s.store == nil {
		return
	}

	if err := s.store.Delete(ctx, failedAuthKeyPrefix+identifier); err != nil {
		s.logger.Error(ctx, "failed to clear auth attempts", err, map[string]interface{}{
			"identifier": identifier,
		})
	}
}
