package dto

import (
	"net/http"
	"strings"
)

// Error codes produced by the HTTP layer itself. Domain errors keep the code
// of the *shared.DomainError that raised them.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "TOKEN_INVALID"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "REQUEST_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General
	ErrCodeInternal:        http.StatusInternalServerError,
	"PASSWORD_HASH_ERROR":  http.StatusInternalServerError,
	"UPLOAD_URL_FAILED":    http.StatusBadGateway,
	"DOWNLOAD_URL_FAILED":  http.StatusBadGateway,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	"FILE_TOO_LARGE":       http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	"REQUEST_IN_PROGRESS":  http.StatusConflict,

	// Input -> 400
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Authentication -> 401
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,

	// Authorization -> 403
	ErrCodeForbidden:         http.StatusForbidden,
	"NOT_PICKER":             http.StatusForbidden,
	"NOT_TEAM_MEMBER":        http.StatusForbidden,
	"NOT_RESELLER":           http.StatusForbidden,
	"ACCOUNT_INACTIVE":       http.StatusForbidden,
	"USER_INACTIVE":          http.StatusForbidden,
	"MEMBER_BLOCKED":         http.StatusForbidden,
	"CANNOT_DEACTIVATE_SELF": http.StatusForbidden,
	"CANNOT_MODIFY_SELF":     http.StatusForbidden,
	"ATTACHMENT_NOT_OWNED":   http.StatusForbidden,

	// Not found -> 404
	ErrCodeNotFound:        http.StatusNotFound,
	"ATTACHMENT_NOT_FOUND": http.StatusNotFound,
	"CATEGORY_NOT_FOUND":   http.StatusNotFound,
	"TEAM_NOT_FOUND":       http.StatusNotFound,
	"USER_NOT_FOUND":       http.StatusNotFound,

	// Conflicts -> 409
	ErrCodeConflict:                http.StatusConflict,
	"CONCURRENT_MODIFICATION":      http.StatusConflict,
	"ALREADY_EXISTS":               http.StatusConflict,
	"CATEGORY_EXISTS":              http.StatusConflict,
	"EMAIL_EXISTS":                 http.StatusConflict,
	"MEMBERSHIP_EXISTS":            http.StatusConflict,
	"ALREADY_PICKED":               http.StatusConflict,
	"FULFILMENT_ALREADY_SUBMITTED": http.StatusConflict,
	"ATTACHMENT_ALREADY_LINKED":    http.StatusConflict,
	"IDEMPOTENCY_KEY_EXPIRED":      http.StatusConflict,

	// State rules -> 422
	"INVALID_STATE":          http.StatusUnprocessableEntity,
	"INVALID_STATUS":         http.StatusUnprocessableEntity,
	"ALREADY_ACTIVE":         http.StatusUnprocessableEntity,
	"ALREADY_INACTIVE":       http.StatusUnprocessableEntity,
	"ALREADY_BLOCKED":        http.StatusUnprocessableEntity,
	"ALREADY_DELETED":        http.StatusUnprocessableEntity,
	"ATTACHMENT_DELETED":     http.StatusUnprocessableEntity,
	"CATEGORY_INACTIVE":      http.StatusUnprocessableEntity,
	"TEAM_INACTIVE":          http.StatusUnprocessableEntity,
	"NOT_BLOCKED":            http.StatusUnprocessableEntity,
	"NOT_STALE":              http.StatusUnprocessableEntity,
	"ROLE_UNCHANGED":         http.StatusUnprocessableEntity,
	"DISPUTE_ORDER_MISMATCH": http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes prefixed INVALID_ that are not listed are field validation failures
// and map to 400; anything else unknown maps to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
