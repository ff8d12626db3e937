// Package apierror writes the JSON error body shared by every endpoint.
package apierror

import (
	"net/http"

	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// Write sends an ErrorResponse and stops the handler chain.
func Write(c *drift.Context, status int, code, message string, errs ...string) {
	_ = c.JSON(status, dto.ErrorResponse{
		StatusCode: status,
		Message:    message,
		ErrorCode:  code,
		Errors:     errs,
	})
	c.Abort()
}

func BadRequest(c *drift.Context, message string) {
	Write(c, http.StatusBadRequest, dto.CodeBadRequest, message)
}

func Validation(c *drift.Context, errs []string) {
	Write(c, http.StatusBadRequest, dto.CodeValidation, "validation failed", errs...)
}

func Unauthorized(c *drift.Context, message string) {
	Write(c, http.StatusUnauthorized, dto.CodeUnauthorized, message)
}

func Forbidden(c *drift.Context, message string) {
	Write(c, http.StatusForbidden, dto.CodeForbidden, message)
}

func NotFound(c *drift.Context, message string) {
	Write(c, http.StatusNotFound, dto.CodeNotFound, message)
}

func Conflict(c *drift.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

// Internal hides the cause from the client. Callers log it first.
func Internal(c *drift.Context) {
	Write(c, http.StatusInternalServerError, dto.CodeInternal, "internal server error")
}
