package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/fulfildesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not picker", shared.NewDomainError("NOT_PICKER", "Only the picker may do this"), http.StatusForbidden, "NOT_PICKER"},
		{"already picked", shared.NewDomainError("ALREADY_PICKED", "Order was picked by someone else"), http.StatusConflict, "ALREADY_PICKED"},
		{"invalid state", shared.NewDomainError("INVALID_STATE", "Not allowed in this status"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped domain error", fmt.Errorf("pick: %w", shared.NewDomainError("FORBIDDEN", "nope")), http.StatusForbidden, "FORBIDDEN"},
		{"infrastructure error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(middleware.RequestID())
			h := &BaseHandler{}
			router.GET("/x", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.Error.RequestID)
		})
	}
}

func TestHandleError_LogsUnknownErrorsWithoutLeakingThem(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), zap.New(core)))
		c.Next()
	})
	h := &BaseHandler{}
	router.GET("/orders/:id", func(c *gin.Context) { h.HandleError(c, errors.New("pq: password authentication failed")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "/orders/:id", entry.ContextMap()["route"])
	assert.Contains(t, entry.ContextMap()["error"], "password authentication failed")
}

func TestHandleError_NilIsNoop(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	(&BaseHandler{}).HandleError(c, nil)
	assert.False(t, c.Writer.Written())
}

func TestPrincipal(t *testing.T) {
	h := &BaseHandler{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := h.principal(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userID := uuid.New()
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set(middleware.PrincipalKey, identity.NewPrincipal(userID, identity.Owner{}))
	p, ok := h.principal(c)
	require.True(t, ok)
	assert.Equal(t, userID, p.UserID)
	assert.True(t, p.IsOwner())
}

func TestUUIDParamAndQuery(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	router := gin.New()
	router.GET("/orders/:id", func(c *gin.Context) {
		got, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		team, ok := h.uuidQuery(c, "team_id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": got, "team": team})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"team":null}`, id), w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+id.String()+"?team_id=oops", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPageArgs(t *testing.T) {
	page, size := pageArgs(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = pageArgs(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
}
