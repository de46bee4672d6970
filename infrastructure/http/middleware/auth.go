package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carelane/authcore/application/port/inbound"
	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/apperror"
	"github.com/carelane/authcore/domain/entity"
	"github.com/carelane/authcore/domain/role"
	"github.com/carelane/authcore/infrastructure/http/response"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// Principal is the authenticated identity attached to the request context.
// Relying services build it from claims alone; the identity-owning service
// additionally carries the loaded user record.
type Principal struct {
	ID   string
	Role role.Role
	User *entity.User
}

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}

// BearerToken extracts the bearer credential from a request, or empty.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type AuthGatewayConfig struct {
	AuthMaxAttempts int
	AuthLockout     time.Duration
}

// AuthGateway authenticates every request carrying a bearer token. When a
// user repository is provided it resolves the full identity record and
// enforces the revocation watermark; with a nil repository it acts as a
// relying service and trusts the claims as-is.
type AuthGateway struct {
	tokens     outbound.TokenService
	rateLimits inbound.RateLimitService
	users      outbound.UserRepository
	logger     logger.Logger
	cfg        AuthGatewayConfig
}

func NewAuthGateway(
	tokens outbound.TokenService,
	rateLimits inbound.RateLimitService,
	users outbound.UserRepository,
	log logger.Logger,
	cfg AuthGatewayConfig,
) *AuthGateway {
	return &AuthGateway{
		tokens:     tokens,
		rateLimits: rateLimits,
		users:      users,
		logger:     log,
		cfg:        cfg,
	}
}

func (g *AuthGateway) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := ClientIP(r)

		// Locked-out clients are rejected before the token is even read.
		if g.rateLimits.IsAuthRateLimited(ctx, clientIP, g.cfg.AuthMaxAttempts) {
			logger.LogAuthEvent(ctx, g.logger, "auth_locked_out", "", clientIP, false, nil)
			response.WriteAppError(w, apperror.RateLimitExceeded(
				"too many failed authentication attempts", int(g.cfg.AuthLockout.Seconds())))
			return
		}

		tokenString := BearerToken(r)
		if tokenString == "" {
			g.recordFailure(ctx, clientIP)
			response.WriteAppError(w, apperror.InvalidToken("missing bearer token"))
			return
		}

		claims, err := g.tokens.Verify(ctx, tokenString, outbound.TokenTypeAccess)
		if err != nil {
			// Infrastructure faults under fail-secure are surfaced as-is;
			// they are not the client's doing and must not count against it.
			if !apperror.IsCode(err, apperror.CodeInternalService) {
				g.recordFailure(ctx, clientIP)
			}
			response.WriteAppError(w, err)
			return
		}

		if claims.Subject == "" {
			g.recordFailure(ctx, clientIP)
			response.WriteAppError(w, apperror.InvalidToken("token subject is missing"))
			return
		}

		principal, err := g.resolvePrincipal(ctx, claims, clientIP)
		if err != nil {
			response.WriteAppError(w, err)
			return
		}

		g.rateLimits.ClearFailedAuth(ctx, clientIP)

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, principalKey, principal)))
	})
}

func (g *AuthGateway) resolvePrincipal(ctx context.Context, claims *outbound.Claims, clientIP string) (*Principal, error) {
	if g.users == nil {
		// Relying-service mode: identity comes entirely from the token.
		r, err := role.Parse(claims.Role)
		if err != nil {
			r = role.Staff
		}
		return &Principal{ID: claims.Subject, Role: r}, nil
	}

	user, err := g.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			// A vanished identity is "gone", not "bad credentials".
			return nil, apperror.ResourceNotFound("User", claims.Subject)
		}
		g.logger.Error(ctx, "failed to load user during authentication", err, map[string]interface{}{
			"user_id": claims.Subject,
		})
		return nil, apperror.InternalService("", err)
	}

	if user.TokensValidFrom != nil && claims.IssuedAt.Before(*user.TokensValidFrom) {
		g.recordFailure(ctx, clientIP)
		logger.LogAuthEvent(ctx, g.logger, "auth_rejected_before_watermark", user.ID, clientIP, false, nil)
		return nil, apperror.TokenRevoked()
	}

	return &Principal{ID: user.ID, Role: user.Role, User: user}, nil
}

func (g *AuthGateway) recordFailure(ctx context.Context, clientIP string) {
	g.rateLimits.RecordFailedAuth(ctx, clientIP, g.cfg.AuthLockout)
}

// RequireRole gates a route on the role hierarchy. Must run inside
// RequireAuth.
func (g *AuthGateway) RequireRole(minimum role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				response.WriteAppError(w, apperror.InvalidToken("request is not authenticated"))
				return
			}
			if !principal.Role.Allows(minimum) {
				g.logger.Warn(r.Context(), "insufficient privileges", map[string]interface{}{
					"user_id":       principal.ID,
					"user_role":     principal.Role.String(),
					"required_role": minimum.String(),
					"path":          r.URL.Path,
				})
				response.WriteAppError(w, apperror.NotAuthorized(
					"a role of '"+minimum.String()+"' or higher is required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// transport peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
