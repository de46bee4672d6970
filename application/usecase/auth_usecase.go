package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/carelane/authcore/application/port/inbound"
	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/apperror"
	"github.com/carelane/authcore/domain/valueobject"
	"github.com/carelane/authcore/infrastructure/service/logger"
)

var _ inbound.AuthUseCase = (*AuthUseCase)(nil)

// AuthUseCase orchestrates the credential flows of the identity-owning
// service: login, refresh rotation, logout, and password change with bulk
// token revocation.
type AuthUseCase struct {
	users      outbound.UserRepository
	tokens     outbound.TokenService
	passwords  inbound.PasswordService
	rateLimits inbound.RateLimitService
	logger     logger.Logger

	accessTokenTTL  time.Duration
	authMaxAttempts int
	authLockout     time.Duration
	now             func() time.Time
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration
	AuthMaxAttempts int
	AuthLockout     time.Duration
}

func NewAuthUseCase(
	users outbound.UserRepository,
	tokens outbound.TokenService,
	passwords inbound.PasswordService,
	rateLimits inbound.RateLimitService,
	log logger.Logger,
	cfg AuthConfig,
) *AuthUseCase {
	return &AuthUseCase{
		users:           users,
		tokens:          tokens,
		passwords:       passwords,
		rateLimits:      rateLimits,
		logger:          log,
		accessTokenTTL:  cfg.AccessTokenTTL,
		authMaxAttempts: cfg.AuthMaxAttempts,
		authLockout:     cfg.AuthLockout,
		now:             time.Now,
	}
}

func (uc *AuthUseCase) WithClock(now func() time.Time) *AuthUseCase {
	uc.now = now
	return uc
}

// Login authenticates credentials and issues a token pair. The brute-force
// counter for the client IP gates the whole flow and is cleared on success.
func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.TokenPairResponse, error) {
	if uc.rateLimits.IsAuthRateLimited(ctx, req.ClientIP, uc.authMaxAttempts) {
		logger.LogAuthEvent(ctx, uc.logger, "login_locked_out", "", req.ClientIP, false, nil)
		return nil, apperror.RateLimitExceeded("too many failed login attempts", int(uc.authLockout.Seconds()))
	}

	creds, err := valueobject.NewCredentials(req.Email, req.Password)
	if err != nil {
		return nil, apperror.InvalidCredentials(err.Error())
	}

	user, err := uc.users.FindByEmail(ctx, creds.Email())
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.rateLimits.RecordFailedAuth(ctx, req.ClientIP, uc.authLockout)
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_user_not_found", "", req.ClientIP, false, map[string]interface{}{
				"email": creds.Email(),
			})
			return nil, apperror.InvalidCredentials("")
		}
		uc.logger.Error(ctx, "failed to look up user for login", err, map[string]interface{}{
			"email": creds.Email(),
		})
		return nil, apperror.InternalService("", err)
	}

	// An inactive account fails identically regardless of password
	// correctness, so account state cannot be probed.
	if !user.IsActive() {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_inactive", user.ID, req.ClientIP, false, nil)
		return nil, apperror.InvalidCredentials("account is inactive or suspended")
	}

	valid, err := uc.passwords.VerifyPassword(creds.Password(), user.PasswordHash)
	if err != nil {
		uc.logger.Error(ctx, "password verification error", err, map[string]interface{}{"user_id": user.ID})
		return nil, apperror.InternalService("", err)
	}
	if !valid {
		uc.rateLimits.RecordFailedAuth(ctx, req.ClientIP, uc.authLockout)
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_invalid_password", user.ID, req.ClientIP, false, nil)
		return nil, apperror.InvalidCredentials("")
	}

	uc.rateLimits.ClearFailedAuth(ctx, req.ClientIP)

	pair, err := uc.tokens.IssuePair(user.ID, user.Role.String())
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_success", user.ID, req.ClientIP, true, nil)
	return uc.pairResponse(pair), nil
}

// Refresh rotates a refresh token: the presented token is verified, revoked,
// and replaced. A token that cannot be revoked is not exchanged, otherwise it
// could be replayed for a second pair.
func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.TokenPairResponse, error) {
	claims, err := uc.tokens.Verify(ctx, req.RefreshToken, outbound.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := uc.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperror.InvalidCredentials("user no longer exists")
		}
		return nil, apperror.InternalService("", err)
	}
	if !user.IsActive() {
		return nil, apperror.InvalidCredentials("account is inactive or suspended")
	}

	revoked, err := uc.tokens.Revoke(ctx, req.RefreshToken, "token refreshed")
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, apperror.InternalService("could not refresh token, please log in again", nil)
	}

	pair, err := uc.tokens.IssuePair(user.ID, user.Role.String())
	if err != nil {
		return nil, err
	}

	uc.logger.Info(ctx, "token refreshed", map[string]interface{}{"user_id": user.ID})
	return uc.pairResponse(pair), nil
}

// Logout revokes both tokens best-effort. Revocation failures are logged but
// not surfaced: the tokens may already be expired or gone.
func (uc *AuthUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	if _, err := uc.tokens.Revoke(ctx, req.AccessToken, "user logout"); err != nil {
		uc.logger.Error(ctx, "failed to revoke access token on logout", err, nil)
	}
	if _, err := uc.tokens.Revoke(ctx, req.RefreshToken, "user logout"); err != nil {
		uc.logger.Error(ctx, "failed to revoke refresh token on logout", err, nil)
	}
	uc.logger.Info(ctx, "user logged out", nil)
	return nil
}

// ChangePassword re-hashes the credential and moves the revocation watermark,
// invalidating every token issued before this moment in a single write.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, req inbound.ChangePasswordRequest) error {
	user, err := uc.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.ResourceNotFound("User", req.UserID)
		}
		return apperror.InternalService("", err)
	}

	valid, err := uc.passwords.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return apperror.InternalService("", err)
	}
	if !valid {
		return apperror.InvalidCredentials("incorrect current password")
	}

	newHash, err := uc.passwords.HashPassword(req.NewPassword)
	if err != nil {
		uc.logger.Error(ctx, "failed to hash new password", err, map[string]interface{}{"user_id": user.ID})
		return apperror.InternalService("could not process password", err)
	}

	if err := uc.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return apperror.InternalService("", err)
	}

	if err := uc.users.SetTokensValidFrom(ctx, user.ID, uc.now()); err != nil {
		uc.logger.Error(ctx, "failed to set revocation watermark after password change", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return apperror.InternalService("", err)
	}

	uc.logger.Info(ctx, "password changed, all prior tokens revoked", map[string]interface{}{"user_id": user.ID})
	return nil
}

func (uc *AuthUseCase) pairResponse(pair *valueobject.TokenPair) *inbound.TokenPairResponse {
	return &inbound.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(uc.accessTokenTTL.Seconds()),
	}
}
