// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"memorial_intake_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// FailureResponse is the standard error response format: the static site's
// form handler switches on `ok` and shows `error` to the visitor.
type FailureResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Fail sends an {ok:false} error response with the given status and message.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, FailureResponse{OK: false, Error: message})
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, it uses the error's Kind to determine
// the HTTP status code. Otherwise, it defaults to 400 Bad Request.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		Fail(c, domainErr.HTTPStatus(), domainErr.Message)
		return true
	}

	Fail(c, http.StatusBadRequest, err.Error())
	return true
}
