package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	principal identity.Principal
	err       error
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, userID uuid.UUID) (identity.Principal, error) {
	s.calls++
	if s.err != nil {
		return identity.Principal{}, s.err
	}
	p := s.principal
	p.UserID = userID
	return p, nil
}

type brokenRevocations struct{ auth.RevocationList }

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenRevocations) IsUserRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "fulfildesk-test",
	})
}

func newAuthRouter(cfg AuthConfig, seen *identity.Principal) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Authenticate(cfg))
	router.GET("/me", func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		if seen != nil {
			*seen = p
		}
		c.String(http.StatusOK, logger.GetUserID(c.Request.Context()))
	})
	return router
}

func serveAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error.RequestID)
	return body.Error.Code
}

func TestAuthenticate_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	userID := uuid.New()
	pair, err := jwtService.GenerateTokenPair(userID)
	require.NoError(t, err)

	resolver := &stubResolver{principal: identity.Principal{Role: identity.Staff{}}}
	var seen identity.Principal
	router := newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver, Revocations: auth.NewMemoryRevocationList()}, &seen)

	rec := serveAuth(router, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())
	assert.Equal(t, userID, seen.UserID)
	assert.True(t, seen.IsStaff())
	assert.Equal(t, 1, resolver.calls)
}

func TestAuthenticate_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(uuid.New())
	require.NoError(t, err)
	router := newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: &stubResolver{}}, nil)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "TOKEN_INVALID"},
		{"refresh token used as access", "Bearer " + pair.RefreshToken, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAuth(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(uuid.New())
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	revocations := auth.NewMemoryRevocationList()
	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, time.Minute))

	resolver := &stubResolver{principal: identity.Principal{Role: identity.Owner{}}}
	rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver, Revocations: revocations}, nil), "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(t, rec))
	assert.Zero(t, resolver.calls)
}

func TestAuthenticate_UserSessionsInvalidated(t *testing.T) {
	jwtService := newTestJWTService()
	userID := uuid.New()
	pair, err := jwtService.GenerateTokenPair(userID)
	require.NoError(t, err)

	revocations := auth.NewMemoryRevocationList()
	require.NoError(t, revocations.RevokeUser(context.Background(), userID.String(), time.Hour))

	rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: &stubResolver{}, Revocations: revocations}, nil), "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(t, rec))
}

func TestAuthenticate_RevocationOutageFailsOpen(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(uuid.New())
	require.NoError(t, err)

	resolver := &stubResolver{principal: identity.Principal{Role: identity.Owner{}}}
	rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver, Revocations: brokenRevocations{}}, nil), "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_ResolverErrors(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(uuid.New())
	require.NoError(t, err)

	t.Run("inactive account is forbidden", func(t *testing.T) {
		resolver := &stubResolver{err: shared.NewDomainError("ACCOUNT_INACTIVE", "Account is deactivated")}
		rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver}, nil), "Bearer "+pair.AccessToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "ACCOUNT_INACTIVE", errorCode(t, rec))
	})

	t.Run("deleted user is unauthorized", func(t *testing.T) {
		resolver := &stubResolver{err: shared.NewDomainError("UNAUTHORIZED", "User no longer exists")}
		rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver}, nil), "Bearer "+pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("database failure is a 500", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("connection refused")}
		rec := serveAuth(newAuthRouter(AuthConfig{Tokens: jwtService, Resolver: resolver}, nil), "Bearer "+pair.AccessToken)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	})
}
