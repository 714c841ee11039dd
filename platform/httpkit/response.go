// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"salesdesk_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Kind      string      `json:"kind,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// RawJSON writes an already-marshaled JSON payload, as produced by the
// idempotency ledger on fresh execution and replay alike.
func RawJSON(c *gin.Context, status int, payload []byte) {
	c.Data(status, "application/json; charset=utf-8", payload)
}

// kindNames maps error kinds to stable machine-readable identifiers.
var kindNames = map[apperr.Kind]string{
	apperr.KindNotFound:          "not_found",
	apperr.KindValidation:        "validation_error",
	apperr.KindConflict:          "conflict",
	apperr.KindForbidden:         "forbidden",
	apperr.KindUnauthorized:      "unauthorized",
	apperr.KindBadRequest:        "bad_request",
	apperr.KindInvalidTransition: "invalid_transition",
	apperr.KindInternal:          "internal",
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, it uses the error's Kind to determine
// the HTTP status code and attaches the stable kind identifier. Internal
// errors additionally carry the request ID as a correlation identifier.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		resp := ErrorResponse{
			Error:   domainErr.Message,
			Kind:    kindNames[domainErr.Kind],
			Details: domainErr.Details,
		}
		if domainErr.Kind == apperr.KindInternal {
			resp.RequestID = RequestID(c)
		}
		c.JSON(domainErr.HTTPStatus(), resp)
		return true
	}

	// Fallback for non-typed errors
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
