// Package handlers defines the error codes of the companion server.
//
// Codes are lowercase snake_case and stable; clients branch on them. Service
// and backend errors are translated by failErr, which keeps the error's
// own message (the backend's wording for rejections).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "backend_rejected",
//	  "message": "Incorrect username or password"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation       = "validation_failed"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeBusy             = "busy"
	ErrCodeSuperseded       = "superseded"
	ErrCodeAuthFailed       = "auth_failed"
	ErrCodeRejected         = "backend_rejected"
	ErrCodeBackendDown      = "backend_unavailable"
)

// classifyErr maps an error onto an HTTP status and a stable code.
func classifyErr(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized, ErrCodeNotAuthenticated
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict, ErrCodeBusy
	case errors.Is(err, services.ErrStale):
		return http.StatusConflict, ErrCodeSuperseded
	case errors.Is(err, services.ErrConfirmationNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrAuth) && !errors.Is(err, api.ErrNetwork):
		return http.StatusUnauthorized, ErrCodeAuthFailed
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, api.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, api.ErrRejected):
		return http.StatusUnprocessableEntity, ErrCodeRejected
	case errors.Is(err, api.ErrNetwork):
		return http.StatusBadGateway, ErrCodeBackendDown
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failErr writes the envelope for err.
func failErr(c *gin.Context, err error) {
	status, code := classifyErr(err)
	fail(c, status, code, err.Error())
}
