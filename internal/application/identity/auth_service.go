package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenIssuer signs and verifies access and refresh tokens
type TokenIssuer interface {
	GenerateTokenPair(userID uuid.UUID) (*auth.TokenPair, error)
	ValidateRefreshToken(token string) (*auth.Claims, error)
}

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles sign-in, token refresh and sign-out
type AuthService struct {
	userRepo    identity.UserRepository
	resolver    *Resolver
	tokens      TokenIssuer
	revocations auth.RevocationList
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	resolver *Resolver,
	tokens TokenIssuer,
	revocations auth.RevocationList,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		resolver:    resolver,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		now:         time.Now,
	}
}

// Login verifies the credentials and issues a token pair. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email", zap.String("email", email))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}
	if !user.Active {
		s.logger.Warn("Login attempt for inactive account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account has been deactivated")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLogin(s.now().UTC())
	if err := s.userRepo.Update(ctx, user); err != nil {
		// the login itself succeeded
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	resp := toTokenResponse(pair)
	u := ToUserResponse(user)
	resp.User = &u
	return resp, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued, provided the account is still active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debug("Refresh token validation failed", zap.Error(err))
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		}
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}

	if err := s.checkRevoked(ctx, claims, userID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Resolve(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return nil, err
	}
	pair, err := s.tokens.GenerateTokenPair(userID)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return toTokenResponse(pair), nil
}

// Logout revokes the access token and, when given and valid, the refresh
// token of the same session
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if err := s.revocations.Revoke(ctx, access.ID, access.RemainingTTL()); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	refresh, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil || refresh.Subject != access.Subject {
		return nil
	}
	return s.revocations.Revoke(ctx, refresh.ID, refresh.RemainingTTL())
}

// Me returns the caller's account and resolved role
func (s *AuthService) Me(ctx context.Context, p identity.Principal) (*MeResponse, error) {
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	resp := &MeResponse{User: ToUserResponse(user)}
	if p.Role != nil {
		resp.Role = string(p.Role.Kind())
		if team, ok := p.Role.TeamID(); ok {
			resp.TeamID = &team
		}
	}
	return resp, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims, userID uuid.UUID) error {
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.revocations.IsUserRevoked(ctx, userID.String(), claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	return nil
}

func toTokenResponse(p *auth.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
		TokenType:             p.TokenType,
	}
}
