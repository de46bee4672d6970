package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carelane/authcore/application/port/inbound"
	"github.com/carelane/authcore/domain/apperror"
	"github.com/carelane/authcore/infrastructure/http/response"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

type RateLimitConfig struct {
	RequestLimitMax    int
	RequestLimitWindow time.Duration
	LoginLimitMax      int
	LoginLimitWindow   time.Duration
}

// RateLimitMiddleware applies fixed-window request limiting per endpoint
// class. Credential endpoints get a tighter budget than the general API.
type RateLimitMiddleware struct {
	rateLimits inbound.RateLimitService
	logger     logger.Logger
	cfg        RateLimitConfig
}

func NewRateLimitMiddleware(rateLimits inbound.RateLimitService, log logger.Logger, cfg RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimits: rateLimits, logger: log, cfg: cfg}
}

func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := ClientIP(r)

		var identifier string
		var limit int
		var window time.Duration
		switch {
		case strings.HasSuffix(r.URL.Path, "/login"), strings.HasSuffix(r.URL.Path, "/refresh"):
			identifier = "login:ip:" + clientIP
			limit = m.cfg.LoginLimitMax
			window = m.cfg.LoginLimitWindow
		default:
			identifier = "general:ip:" + clientIP
			limit = m.cfg.RequestLimitMax
			window = m.cfg.RequestLimitWindow
		}

		// Per-user quota for authenticated requests so clients behind one
		// proxy do not share a bucket.
		if p := GetPrincipal(ctx); p != nil {
			identifier = "general:user:" + p.ID
		}

		if m.rateLimits.IsLimited(ctx, identifier, limit, window) {
			m.logger.Warn(ctx, "rate limit exceeded", map[string]interface{}{
				"identifier": identifier,
				"path":       r.URL.Path,
				"limit":      limit,
			})
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.WriteAppError(w, apperror.RateLimitExceeded(
				"maximum "+strconv.Itoa(limit)+" requests per "+window.String(), int(window.Seconds())))
			return
		}

		next.ServeHTTP(w, r)
	})
}
