package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by Authenticate
const (
	ClaimsKey    = "auth_claims"
	PrincipalKey = "auth_principal"
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// TokenValidator verifies access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// PrincipalResolver loads the caller's current role
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (identity.Principal, error)
}

// AuthConfig holds the dependencies of Authenticate
type AuthConfig struct {
	Tokens   TokenValidator
	Resolver PrincipalResolver
	// Revocations is optional; a nil list skips revocation checks
	Revocations auth.RevocationList
	Logger      *zap.Logger
}

// Authenticate validates the bearer token, rejects revoked tokens, resolves
// the caller's role from the database and stores the Principal on the gin
// context. Revocation lookups fail open so a Redis outage does not lock
// every user out.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader(authHeader)
		if header == "" {
			abortAuth(c, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			abortAuth(c, dto.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := cfg.Tokens.ValidateAccessToken(token)
		if err != nil {
			code, msg := tokenErrorCode(err)
			abortAuth(c, code, msg)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			abortAuth(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		ctx := c.Request.Context()
		if cfg.Revocations != nil {
			if revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID); err != nil {
				log.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortAuth(c, dto.ErrCodeTokenRevoked, "Token has been revoked")
				return
			}
			if revoked, err := cfg.Revocations.IsUserRevoked(ctx, userID.String(), claims.IssuedAtTime()); err != nil {
				log.Error("Failed to check user revocation", zap.String("user_id", userID.String()), zap.Error(err))
			} else if revoked {
				abortAuth(c, dto.ErrCodeTokenRevoked, "Session has been invalidated")
				return
			}
		}

		principal, err := cfg.Resolver.Resolve(ctx, userID)
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				abortAuth(c, domainErr.Code, domainErr.Message)
				return
			}
			logger.L(ctx).Error("Failed to resolve principal", zap.String("user_id", userID.String()), zap.Error(err))
			abortAuth(c, dto.ErrCodeInternal, "An unexpected error occurred")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(logger.WithUserID(ctx, userID.String()))
		c.Next()
	}
}

func tokenErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidTokenType):
		return dto.ErrCodeTokenInvalid, "Invalid token type"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}

func abortAuth(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetPrincipal returns the authenticated caller
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

// GetClaims returns the validated access token claims
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
